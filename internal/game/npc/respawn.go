package npc

import (
	"sync"

	"github.com/cory-johannsen/enforcer/internal/game/dice"
	"github.com/cory-johannsen/enforcer/internal/game/world"
)

// SpawnPost is a fixed location that keeps a small group of NPCs populated,
// such as a merchant stall.
//
// Invariant: 1 <= MinGroup <= MaxGroup; ticks values >= 0.
type SpawnPost struct {
	Name       string
	TemplateID string
	LevelID    string
	Pos        world.Pos
	MinGroup   int
	MaxGroup   int
	// IntervalTicks is how often the post tops its group back up to MinGroup.
	// Zero disables periodic top-up.
	IntervalTicks int64
	// CooldownTicks delays the replacement of a single removed member.
	// Zero means removed members are not replaced individually.
	CooldownTicks int64
}

// postKey identifies a post across reconfiguration.
type postKey struct {
	name, template, level string
	pos                   world.Pos
}

func (p SpawnPost) key() postKey {
	return postKey{name: p.Name, template: p.TemplateID, level: p.LevelID, pos: p.Pos}
}

type respawnEntry struct {
	post    int
	readyAt int64
}

// RespawnManager keeps SpawnPost groups populated on a tick schedule.
// It is safe for concurrent use; Tick and Populate are expected to run on the
// simulation tick goroutine.
type RespawnManager struct {
	mu        sync.Mutex
	posts     []SpawnPost
	members   []map[string]bool // post index → member instance IDs
	lastCheck []int64
	pending   []respawnEntry
	src       dice.Source
}

// NewRespawnManager creates a RespawnManager for posts.
//
// Precondition: src must be non-nil.
// Postcondition: Returns a non-nil RespawnManager with no members yet.
func NewRespawnManager(posts []SpawnPost, src dice.Source) *RespawnManager {
	r := &RespawnManager{
		posts:     append([]SpawnPost(nil), posts...),
		members:   make([]map[string]bool, len(posts)),
		lastCheck: make([]int64, len(posts)),
		src:       src,
	}
	for i := range r.members {
		r.members[i] = make(map[string]bool)
	}
	return r
}

// Posts returns a copy of the configured posts.
func (r *RespawnManager) Posts() []SpawnPost {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SpawnPost(nil), r.posts...)
}

// Reconfigure replaces the posts. A post with the same name, template,
// level and position as an existing one keeps its members, top-up schedule
// and pending replacements; members of dropped posts are released.
func (r *RespawnManager) Reconfigure(posts []SpawnPost) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := make(map[postKey]int, len(r.posts))
	for i, p := range r.posts {
		old[p.key()] = i
	}
	moved := make(map[int]int, len(posts))
	members := make([]map[string]bool, len(posts))
	lastCheck := make([]int64, len(posts))
	for i, p := range posts {
		j, ok := old[p.key()]
		if !ok {
			members[i] = make(map[string]bool)
			continue
		}
		delete(old, p.key())
		members[i] = r.members[j]
		lastCheck[i] = r.lastCheck[j]
		moved[j] = i
	}
	var pending []respawnEntry
	for _, e := range r.pending {
		if i, ok := moved[e.post]; ok {
			e.post = i
			pending = append(pending, e)
		}
	}
	r.posts = append([]SpawnPost(nil), posts...)
	r.members = members
	r.lastCheck = lastCheck
	r.pending = pending
}

// Populate fills every post to a rolled group size in [MinGroup, MaxGroup].
//
// Precondition: mgr must not be nil.
// Postcondition: Returns the instances created; failed spawns are skipped.
func (r *RespawnManager) Populate(now int64, mgr *Manager) []*Instance {
	r.mu.Lock()
	defer r.mu.Unlock()

	var spawned []*Instance
	for i, post := range r.posts {
		want := post.MinGroup
		if spread := post.MaxGroup - post.MinGroup; spread > 0 {
			want += r.src.Intn(spread + 1)
		}
		spawned = append(spawned, r.fillLocked(i, want, mgr)...)
		r.lastCheck[i] = now
	}
	return spawned
}

// Schedule records that instanceID left its post and queues its replacement
// after the post's cooldown. Instances that belong to no post are ignored.
//
// Postcondition: Returns true iff instanceID belonged to a post.
func (r *RespawnManager) Schedule(instanceID string, now int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, set := range r.members {
		if !set[instanceID] {
			continue
		}
		delete(set, instanceID)
		if cd := r.posts[i].CooldownTicks; cd > 0 {
			r.pending = append(r.pending, respawnEntry{post: i, readyAt: now + cd})
		}
		return true
	}
	return false
}

// Tick drains pending replacements whose time has come and performs the
// periodic top-up for every post whose interval elapsed.
//
// Precondition: mgr must not be nil.
// Postcondition: Returns the instances created during this tick.
func (r *RespawnManager) Tick(now int64, mgr *Manager) []*Instance {
	r.mu.Lock()
	defer r.mu.Unlock()

	var spawned []*Instance
	var future []respawnEntry
	for _, e := range r.pending {
		if e.readyAt > now {
			future = append(future, e)
			continue
		}
		live := r.liveLocked(e.post, mgr)
		if live < r.posts[e.post].MaxGroup {
			spawned = append(spawned, r.fillLocked(e.post, live+1, mgr)...)
		}
	}
	r.pending = future

	for i, post := range r.posts {
		if post.IntervalTicks <= 0 || now-r.lastCheck[i] < post.IntervalTicks {
			continue
		}
		r.lastCheck[i] = now
		spawned = append(spawned, r.fillLocked(i, post.MinGroup, mgr)...)
	}
	return spawned
}

// fillLocked spawns members of post i until it has want live members.
// Caller must hold r.mu.
func (r *RespawnManager) fillLocked(i, want int, mgr *Manager) []*Instance {
	post := r.posts[i]
	var spawned []*Instance
	for n := r.liveLocked(i, mgr); n < want; n++ {
		pos := post.Pos.Offset(n%3-1, 0, (n/3)%3-1)
		inst, err := mgr.SpawnFromTemplate(post.TemplateID, post.LevelID, pos)
		if err != nil {
			// Missing templates are a content error; the next tick retries.
			break
		}
		r.members[i][inst.ID] = true
		spawned = append(spawned, inst)
	}
	return spawned
}

// liveLocked counts post members that are still alive, pruning the rest.
// Caller must hold r.mu.
func (r *RespawnManager) liveLocked(i int, mgr *Manager) int {
	count := 0
	for id := range r.members[i] {
		inst, ok := mgr.Get(id)
		if !ok || !inst.IsAlive() {
			delete(r.members[i], id)
			continue
		}
		count++
	}
	return count
}
