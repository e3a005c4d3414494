package npc

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/cory-johannsen/enforcer/internal/game/world"
)

// Instance is a live NPC entity placed in a level.
//
// Instance fields are owned by the simulation tick goroutine; callers on other
// goroutines must hand work to that goroutine instead of mutating directly.
type Instance struct {
	// ID uniquely identifies this runtime instance.
	ID string
	// TemplateID is the source template's ID.
	TemplateID string
	// Name is copied from the template for display.
	Name string
	// LevelID is the level this instance occupies.
	LevelID string
	// Pos is the instance's block position.
	Pos world.Pos
	// Faction, Profession and Trading are copied from the template.
	Faction    string
	Profession string
	Trading    string
	// CurrentHP is the instance's current hit points.
	CurrentHP int
	// MaxHP is the instance's maximum hit points.
	MaxHP int
	// AttackDamage is the damage dealt per hit.
	AttackDamage int
	// Target is the player this NPC is hunting; uuid.Nil means none.
	Target uuid.UUID

	removed    bool
	tags       map[string]struct{}
	objectives map[Objective]int
}

// NewInstance creates a live NPC instance from a template.
//
// Precondition: id must be non-empty; tmpl must be non-nil; levelID must be non-empty.
// Postcondition: CurrentHP equals tmpl.MaxHP; objectives mirror the template.
func NewInstance(id string, tmpl *Template, levelID string, pos world.Pos) *Instance {
	inst := &Instance{
		ID:           id,
		TemplateID:   tmpl.ID,
		Name:         tmpl.Name,
		LevelID:      levelID,
		Pos:          pos,
		Faction:      tmpl.Faction,
		Profession:   tmpl.Profession,
		Trading:      tmpl.TradingType(),
		CurrentHP:    tmpl.MaxHP,
		MaxHP:        tmpl.MaxHP,
		AttackDamage: tmpl.AttackDamage,
		tags:         make(map[string]struct{}),
		objectives:   make(map[Objective]int),
	}
	for i, o := range tmpl.Objectives {
		inst.objectives[o] = i + 1
	}
	return inst
}

// IsAlive reports whether the instance has hit points left and was not discarded.
func (i *Instance) IsAlive() bool {
	return !i.removed && i.CurrentHP > 0
}

// IsRemoved reports whether the instance has been discarded from its manager.
func (i *Instance) IsRemoved() bool { return i.removed }

// IsDefaultFaction reports whether the instance has no explicit allegiance.
func (i *Instance) IsDefaultFaction() bool {
	return i.Faction == "" || strings.EqualFold(i.Faction, "default")
}

// AddTag attaches a free-text tag.
func (i *Instance) AddTag(tag string) { i.tags[tag] = struct{}{} }

// HasTag reports whether tag is attached.
func (i *Instance) HasTag(tag string) bool {
	_, ok := i.tags[tag]
	return ok
}

// RemoveTag detaches tag. Missing tags are ignored.
func (i *Instance) RemoveTag(tag string) { delete(i.tags, tag) }

// Tags returns the attached tags in lexical order.
func (i *Instance) Tags() []string {
	out := make([]string, 0, len(i.tags))
	for t := range i.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// HasObjective reports whether o is among the active objectives.
func (i *Instance) HasObjective(o Objective) bool {
	_, ok := i.objectives[o]
	return ok
}

// HasAnyObjective reports whether any of set is active.
func (i *Instance) HasAnyObjective(set []Objective) bool {
	for _, o := range set {
		if i.HasObjective(o) {
			return true
		}
	}
	return false
}

// AddObjective adds or reprioritises o.
func (i *Instance) AddObjective(o Objective, priority int) { i.objectives[o] = priority }

// RemoveObjective drops o. Missing objectives are ignored.
func (i *Instance) RemoveObjective(o Objective) { delete(i.objectives, o) }

// Objectives returns the active objectives in lexical order.
func (i *Instance) Objectives() []Objective {
	out := make([]Objective, 0, len(i.objectives))
	for o := range i.objectives {
		out = append(out, o)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// SetTarget points the instance's AI at player.
func (i *Instance) SetTarget(player uuid.UUID) { i.Target = player }

// ClearTarget removes any AI target.
func (i *Instance) ClearTarget() { i.Target = uuid.Nil }
