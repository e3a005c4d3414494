package gameserver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/enforcer/internal/game/command"
	"github.com/cory-johannsen/enforcer/internal/game/session"
	"github.com/cory-johannsen/enforcer/internal/game/world"
)

// ErrUnknownCommand is returned for a command word the registry does not know.
var ErrUnknownCommand = errors.New("unknown command")

// PlayerFinder resolves online players by UID or display name.
type PlayerFinder interface {
	PlayerDirectory
	GetPlayerByName(name string) (session.PlayerSession, bool)
}

// LawCommandHandler executes `law ...` admin command lines against the law
// system.
//
// Execute must be called from the tick loop.
type LawCommandHandler struct {
	law      *LawSystemHandler
	players  PlayerFinder
	registry *command.Registry
	host     *HostBridge
	logger   *zap.Logger
}

// NewLawCommandHandler creates a LawCommandHandler.
//
// Precondition: all arguments must be non-nil.
func NewLawCommandHandler(lawSys *LawSystemHandler, players PlayerFinder, registry *command.Registry, logger *zap.Logger) *LawCommandHandler {
	return &LawCommandHandler{
		law:      lawSys,
		players:  players,
		registry: registry,
		logger:   logger.Named("law_command"),
	}
}

// SetHost attaches the bridge that serves the host world commands.
func (c *LawCommandHandler) SetHost(b *HostBridge) { c.host = b }

// Execute parses and runs line on behalf of caller. caller may be uuid.Nil
// for out-of-game admins; commands that default to the caller then require
// an explicit player.
//
// Postcondition: Returns the reply text, or an error describing why the
// command was rejected. A rejected command changes no state.
func (c *LawCommandHandler) Execute(ctx context.Context, caller uuid.UUID, line string) (string, error) {
	parsed := command.Parse(line)
	if parsed.Command == "" {
		return c.registry.HelpText(), nil
	}
	cmd, ok := c.registry.Resolve(parsed.Command)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, parsed.Command)
	}
	if err := command.Validate(cmd, parsed.Args); err != nil {
		return "", err
	}
	c.logger.Info("law command",
		zap.Stringer("caller", caller),
		zap.String("command", cmd.Name),
		zap.Strings("args", parsed.Args),
	)
	args := parsed.Args

	switch cmd.Handler {
	case command.HandlerHelp:
		return c.registry.HelpText(), nil
	case command.HandlerStatus:
		return c.status(caller, args)
	case command.HandlerSet:
		return c.set(args)
	case command.HandlerClear:
		uid, name, err := c.resolvePlayer(args[0])
		if err != nil {
			return "", err
		}
		c.law.ClearPlayerCrimes(uid)
		return fmt.Sprintf("Cleared crimes for %s.", name), nil
	case command.HandlerClearAll:
		c.law.ClearAllWanted()
		return "Cleared all wanted levels.", nil
	case command.HandlerImmunity:
		uid, name, err := c.resolvePlayer(args[0])
		if err != nil {
			return "", err
		}
		if c.law.ToggleCrimeImmunity(uid) {
			return fmt.Sprintf("%s is now immune to crimes.", name), nil
		}
		return fmt.Sprintf("%s is no longer immune to crimes.", name), nil
	case command.HandlerToggle:
		enabled := !c.law.SystemEnabled()
		c.law.SetSystemEnabled(enabled)
		return fmt.Sprintf("Law system %s.", onOff(enabled)), nil
	case command.HandlerReload:
		if err := c.law.ReloadConfig(ctx); err != nil {
			return "", fmt.Errorf("reload failed: %w", err)
		}
		return fmt.Sprintf("Reloaded law config (profile %s).", c.law.Config().ProfileName), nil
	case command.HandlerPreset:
		name := strings.ToLower(args[0])
		if err := c.law.ApplyPreset(name); err != nil {
			return "", err
		}
		return fmt.Sprintf("Applied preset %s.", name), nil
	case command.HandlerSpawn:
		return c.spawn(caller, args)
	case command.HandlerStats:
		return c.stats(), nil
	case command.HandlerSync:
		c.law.SyncAllPlayers()
		return fmt.Sprintf("Synced %d players.", len(c.players.AllPlayers())), nil
	case command.HandlerSimulate:
		seconds, err := strconv.Atoi(args[0])
		if err != nil || seconds <= 0 {
			return "", fmt.Errorf("%w: seconds must be a positive integer", command.ErrUsage)
		}
		ticks := c.law.RunSimulation(seconds)
		return fmt.Sprintf("Simulated %d ticks (%d seconds).", ticks, ticks/ticksPerSecond), nil
	case command.HandlerJoin, command.HandlerLeave, command.HandlerMove, command.HandlerReport:
		if c.host == nil {
			return "", ErrNoHost
		}
		return c.hostCommand(cmd.Handler, args)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
	}
}

func (c *LawCommandHandler) hostCommand(handler string, args []string) (string, error) {
	switch handler {
	case command.HandlerJoin:
		uid, err := uuid.Parse(args[0])
		if err != nil {
			return "", fmt.Errorf("%w: %q is not a uuid", command.ErrUsage, args[0])
		}
		pos, err := parsePos(args[3:6])
		if err != nil {
			return "", err
		}
		if err := c.host.Join(uid, args[1], args[2], pos); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s joined %s at %s.", args[1], args[2], pos), nil
	case command.HandlerLeave:
		uid, name, err := c.resolvePlayer(args[0])
		if err != nil {
			return "", err
		}
		if err := c.host.Leave(uid); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s left.", name), nil
	case command.HandlerMove:
		uid, name, err := c.resolvePlayer(args[0])
		if err != nil {
			return "", err
		}
		pos, err := parsePos(args[1:4])
		if err != nil {
			return "", err
		}
		level := ""
		if len(args) > 4 {
			level = args[4]
		}
		if err := c.host.Move(uid, level, pos); err != nil {
			return "", err
		}
		return fmt.Sprintf("Moved %s to %s.", name, pos), nil
	default:
		return c.report(args)
	}
}

func (c *LawCommandHandler) report(args []string) (string, error) {
	uid, name, err := c.resolvePlayer(args[0])
	if err != nil {
		return "", err
	}
	kind := strings.ToLower(args[1])
	if kind == command.ReportTrespass {
		err = c.host.Trespass(uid)
	} else {
		if len(args) < 3 {
			return "", fmt.Errorf("%w: law report <player> %s <npc>", command.ErrUsage, kind)
		}
		switch kind {
		case command.ReportKill:
			err = c.host.Kill(uid, args[2])
		case command.ReportAttack:
			err = c.host.Attack(uid, args[2])
		case command.ReportTheft:
			err = c.host.Theft(uid, args[2])
		default:
			return "", fmt.Errorf("%w: law report <player> kill|attack|theft <npc> | trespass", command.ErrUsage)
		}
	}
	if err != nil {
		return "", err
	}
	s := c.law.GetOrCreatePlayerState(uid)
	return fmt.Sprintf("Reported %s by %s: wanted %d, peace %d.", kind, name, s.WantedLevel, s.PeaceValue), nil
}

func parsePos(args []string) (world.Pos, error) {
	var v [3]int
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return world.Pos{}, fmt.Errorf("%w: %q is not a coordinate", command.ErrUsage, a)
		}
		v[i] = n
	}
	return world.Pos{X: v[0], Y: v[1], Z: v[2]}, nil
}

func (c *LawCommandHandler) status(caller uuid.UUID, args []string) (string, error) {
	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	var (
		uid  uuid.UUID
		name string
		err  error
	)
	if target == "" {
		if caller == uuid.Nil {
			return "", fmt.Errorf("%w: law status <player>", command.ErrUsage)
		}
		uid, name, err = c.resolvePlayer(caller.String())
	} else {
		uid, name, err = c.resolvePlayer(target)
	}
	if err != nil {
		return "", err
	}
	s := c.law.GetOrCreatePlayerState(uid)
	var b strings.Builder
	fmt.Fprintf(&b, "Law status for %s\n", name)
	fmt.Fprintf(&b, "  Standing:  %s\n", c.law.PlayerStanding(uid))
	fmt.Fprintf(&b, "  Wanted:    %d/%d\n", s.WantedLevel, c.law.cfg.MaxWantedLevel)
	fmt.Fprintf(&b, "  Peace:     %d/%d\n", s.PeaceValue, c.law.cfg.PeaceValueMax)
	fmt.Fprintf(&b, "  Immune:    %t\n", s.CrimeImmunity)
	fmt.Fprintf(&b, "  Guards:    %d\n", c.law.guards.GuardCountForPlayer(uid))
	fmt.Fprintf(&b, "  Crimes:    %d\n", len(s.CrimeHistory))
	if len(s.CrimeHistory) > 0 {
		last := s.CrimeHistory[0]
		fmt.Fprintf(&b, "  Last:      %s in %s at tick %d\n", last.Type, last.RegionID, last.Timestamp)
	}
	return b.String(), nil
}

func (c *LawCommandHandler) set(args []string) (string, error) {
	uid, name, err := c.resolvePlayer(args[0])
	if err != nil {
		return "", err
	}
	n, err := strconv.Atoi(args[2])
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a number", command.ErrUsage, args[2])
	}
	switch strings.ToLower(args[1]) {
	case command.FieldWanted:
		c.law.SetPlayerWantedLevel(uid, n)
		return fmt.Sprintf("Set %s wanted level to %d.", name, c.law.GetOrCreatePlayerState(uid).WantedLevel), nil
	case command.FieldPeace:
		c.law.SetPlayerPeaceValue(uid, n)
		return fmt.Sprintf("Set %s peace value to %d.", name, c.law.GetOrCreatePlayerState(uid).PeaceValue), nil
	default:
		return "", fmt.Errorf("%w: law set <player> wanted|peace <n>", command.ErrUsage)
	}
}

func (c *LawCommandHandler) spawn(caller uuid.UUID, args []string) (string, error) {
	switch strings.ToLower(args[0]) {
	case command.SpawnPatrol:
		tier, err := strconv.Atoi(args[1])
		if err != nil {
			return "", fmt.Errorf("%w: tier must be a number", command.ErrUsage)
		}
		at := caller
		if len(args) > 2 {
			if at, _, err = c.resolvePlayer(args[2]); err != nil {
				return "", err
			}
		}
		p, ok := c.players.GetPlayer(at)
		if !ok {
			return "", fmt.Errorf("%w: patrol needs an online player position", ErrPlayerNotFound)
		}
		n, err := c.law.guards.SpawnPatrolAt(p.LevelID, p.Pos, tier)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Spawned %d patrol guards at %s.", n, p.Pos), nil
	case command.SpawnPursuit:
		if len(args) < 3 {
			return "", fmt.Errorf("%w: law spawn pursuit <player> <tier>", command.ErrUsage)
		}
		uid, name, err := c.resolvePlayer(args[1])
		if err != nil {
			return "", err
		}
		tier, err := strconv.Atoi(args[2])
		if err != nil {
			return "", fmt.Errorf("%w: tier must be a number", command.ErrUsage)
		}
		p, ok := c.players.GetPlayer(uid)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrPlayerNotFound, name)
		}
		n, err := c.law.guards.SpawnPursuitSquad(p, tier)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Dispatched %d pursuit guards to %s.", n, name), nil
	default:
		return "", fmt.Errorf("%w: law spawn patrol|pursuit ...", command.ErrUsage)
	}
}

func (c *LawCommandHandler) stats() string {
	d := c.law.BuildAdminData()
	var b strings.Builder
	fmt.Fprintf(&b, "Law system %s (profile %s) at tick %d\n", onOff(d.Config.SystemEnabled), d.Config.ProfileName, d.Tick)
	fmt.Fprintf(&b, "  Regions:   %d\n", len(d.Config.Regions))
	fmt.Fprintf(&b, "  Merchants: %d\n", d.MerchantCount)
	fmt.Fprintf(&b, "  Guards:    %d\n", d.GuardCount)
	fmt.Fprintf(&b, "  Wanted:    %d\n", d.WantedCount)
	for _, p := range d.Players {
		fmt.Fprintf(&b, "  %-16s %-12s wanted=%d peace=%d guards=%d\n", p.Name, p.Standing, p.WantedLevel, p.PeaceValue, p.Guards)
	}
	return b.String()
}

// resolvePlayer accepts a UUID (online or not) or an online player's name.
func (c *LawCommandHandler) resolvePlayer(ref string) (uuid.UUID, string, error) {
	if uid, err := uuid.Parse(ref); err == nil {
		if p, ok := c.players.GetPlayer(uid); ok {
			return uid, p.Name, nil
		}
		return uid, uid.String(), nil
	}
	if p, ok := c.players.GetPlayerByName(ref); ok {
		return p.UID, p.Name, nil
	}
	return uuid.Nil, "", fmt.Errorf("%w: %s", ErrPlayerNotFound, ref)
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
