// Package command provides the registry, parser and built-in definitions of
// the law admin command tree.
package command

// Categories for organizing commands.
const (
	CategoryPlayer = "player"
	CategoryGuards = "guards"
	CategorySystem = "system"
	CategoryHost   = "host"
)

// Handler identifiers mapping commands to LawCommandHandler branches.
const (
	HandlerHelp     = "help"
	HandlerStatus   = "status"
	HandlerSet      = "set"
	HandlerClear    = "clear"
	HandlerClearAll = "clearall"
	HandlerImmunity = "immunity"
	HandlerToggle   = "toggle"
	HandlerReload   = "reload"
	HandlerPreset   = "preset"
	HandlerSpawn    = "spawn"
	HandlerStats    = "stats"
	HandlerSync     = "sync"
	HandlerSimulate = "simulate"
	HandlerJoin     = "join"
	HandlerLeave    = "leave"
	HandlerMove     = "move"
	HandlerReport   = "report"
)

// Set and spawn subcommands.
const (
	FieldWanted  = "wanted"
	FieldPeace   = "peace"
	SpawnPatrol  = "patrol"
	SpawnPursuit = "pursuit"
)

// Report event kinds.
const (
	ReportKill     = "kill"
	ReportAttack   = "attack"
	ReportTheft    = "theft"
	ReportTrespass = "trespass"
)

// Command defines an admin subcommand of `law`.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage is the argument synopsis shown by help.
	Usage string
	// Help is the short help text.
	Help string
	// Category groups the command.
	Category string
	// Handler maps to the LawCommandHandler branch.
	Handler string
	// MinArgs is the number of required arguments.
	MinArgs int
}

// BuiltinCommands returns every law admin command.
func BuiltinCommands() []Command {
	return []Command{
		// Player commands
		{Name: "status", Aliases: []string{"st"}, Usage: "[player]", Help: "Show a player's wanted level, peace and guards", Category: CategoryPlayer, Handler: HandlerStatus},
		{Name: "set", Usage: "<player> wanted|peace <n>", Help: "Set a player's wanted level or peace value", Category: CategoryPlayer, Handler: HandlerSet, MinArgs: 3},
		{Name: "clear", Usage: "<player>", Help: "Clear a player's crimes and despawn their guards", Category: CategoryPlayer, Handler: HandlerClear, MinArgs: 1},
		{Name: "clearall", Help: "Clear every player's crimes", Category: CategoryPlayer, Handler: HandlerClearAll},
		{Name: "immunity", Aliases: []string{"immune"}, Usage: "<player>", Help: "Toggle a player's crime immunity", Category: CategoryPlayer, Handler: HandlerImmunity, MinArgs: 1},

		// Guard commands
		{Name: "spawn", Usage: "patrol <tier> [player] | pursuit <player> <tier>", Help: "Spawn a guard patrol at you or a player, or a pursuit squad on a player", Category: CategoryGuards, Handler: HandlerSpawn, MinArgs: 2},

		// System commands
		{Name: "toggle", Help: "Enable or disable the law system", Category: CategorySystem, Handler: HandlerToggle},
		{Name: "reload", Help: "Reload the stored law config", Category: CategorySystem, Handler: HandlerReload},
		{Name: "preset", Usage: "<default|hardcore|casual|rp>", Help: "Apply a tuning preset", Category: CategorySystem, Handler: HandlerPreset, MinArgs: 1},
		{Name: "stats", Help: "Show system statistics", Category: CategorySystem, Handler: HandlerStats},
		{Name: "sync", Help: "Push law state to every online player", Category: CategorySystem, Handler: HandlerSync},
		{Name: "simulate", Aliases: []string{"sim"}, Usage: "<seconds>", Help: "Run up to 60 seconds of law ticks", Category: CategorySystem, Handler: HandlerSimulate, MinArgs: 1},

		// Host world commands
		{Name: "join", Usage: "<uuid> <name> <level> <x> <y> <z>", Help: "Bring a player online", Category: CategoryHost, Handler: HandlerJoin, MinArgs: 6},
		{Name: "leave", Usage: "<player>", Help: "Take a player offline", Category: CategoryHost, Handler: HandlerLeave, MinArgs: 1},
		{Name: "move", Aliases: []string{"tp"}, Usage: "<player> <x> <y> <z> [level]", Help: "Move a player", Category: CategoryHost, Handler: HandlerMove, MinArgs: 4},
		{Name: "report", Usage: "<player> kill|attack|theft <npc> | trespass", Help: "Report a player's world event", Category: CategoryHost, Handler: HandlerReport, MinArgs: 2},

		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
	}
}
