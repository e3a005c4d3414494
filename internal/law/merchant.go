package law

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/enforcer/internal/game/npc"
	"github.com/cory-johannsen/enforcer/internal/game/world"
)

// MerchantTemplate describes a merchant group kept populated at a stall.
type MerchantTemplate struct {
	ID                 string    `yaml:"id"`
	Name               string    `yaml:"name"`
	Profession         string    `yaml:"profession"`
	Health             int       `yaml:"health"`
	NPCTemplate        string    `yaml:"npc_template"`
	LevelID            string    `yaml:"level"`
	Pos                world.Pos `yaml:"pos"`
	MinGroupSize       int       `yaml:"min_group_size"`
	MaxGroupSize       int       `yaml:"max_group_size"`
	SpawnIntervalTicks int64     `yaml:"spawn_interval_ticks"`
	RespawnCooldown    int64     `yaml:"respawn_cooldown"`
}

// NewMerchantTemplate returns a template with default group sizing.
func NewMerchantTemplate(name, npcTemplate string) MerchantTemplate {
	return MerchantTemplate{
		ID:                 uuid.NewString(),
		Name:               name,
		Profession:         "trader",
		Health:             20,
		NPCTemplate:        npcTemplate,
		MinGroupSize:       1,
		MaxGroupSize:       3,
		SpawnIntervalTicks: 12000,
		RespawnCooldown:    6000,
	}
}

// UnmarshalYAML fills omitted fields from NewMerchantTemplate defaults.
func (m *MerchantTemplate) UnmarshalYAML(node *yaml.Node) error {
	type plain MerchantTemplate
	p := plain(NewMerchantTemplate("Merchant", ""))
	if err := node.Decode(&p); err != nil {
		return err
	}
	*m = MerchantTemplate(p)
	return nil
}

// Validate checks the template's invariants.
func (m MerchantTemplate) Validate() error {
	if m.NPCTemplate == "" {
		return fmt.Errorf("merchant %q: npc_template must not be empty", m.Name)
	}
	if m.LevelID == "" {
		return fmt.Errorf("merchant %q: level must not be empty", m.Name)
	}
	if m.MinGroupSize < 1 || m.MaxGroupSize < m.MinGroupSize {
		return fmt.Errorf("merchant %q: group size [%d,%d] invalid", m.Name, m.MinGroupSize, m.MaxGroupSize)
	}
	if m.SpawnIntervalTicks < 0 || m.RespawnCooldown < 0 {
		return fmt.Errorf("merchant %q: tick values must be >= 0", m.Name)
	}
	return nil
}

// SpawnPost converts the template into a respawn post for the NPC layer.
func (m MerchantTemplate) SpawnPost() npc.SpawnPost {
	return npc.SpawnPost{
		Name:          m.Name,
		TemplateID:    m.NPCTemplate,
		LevelID:       m.LevelID,
		Pos:           m.Pos,
		MinGroup:      m.MinGroupSize,
		MaxGroup:      m.MaxGroupSize,
		IntervalTicks: m.SpawnIntervalTicks,
		CooldownTicks: m.RespawnCooldown,
	}
}
