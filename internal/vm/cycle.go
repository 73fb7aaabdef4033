package vm

import (
	"github.com/dchest/siphash"
)

// CycleNode is a node of a possibly-cyclic singly-linked list
// representing a prerecorded future of branch decisions: DoJump true
// means take the jump arm, false means take the continue arm. Tail may
// point back into the list itself, closing a real infinite loop.
type CycleNode struct {
	DoJump bool
	Tail   *CycleNode
}

// jumpFlag tracks, for one entry on the DFS path stack, whether the
// branch at that point has been tried both ways yet (Follow) and
// whether its jump target is strictly earlier in code (Upward) — the
// latter being the only branches worth checking for a repeated state,
// since any loop needs at least one upward jump.
type jumpFlag struct {
	Follow bool
	Upward bool
}

// saveKey is a SipHash-2-4 digest of a Program.Save() byte string, used
// as the breadcrumbs map key so visited-state comparisons are a single
// uint64 compare instead of a byte-slice compare.
type saveKey uint64

// sipKey0 and sipKey1 are fixed and arbitrary: find_cycle only needs internal
// collision resistance within one invocation, not cross-process
// stability, so there is no need to randomize or persist it.
var sipKey0, sipKey1 uint64 = 0x73706869_6e78766d, 0x66696e64_5f637963

func hashSave(sb []byte) saveKey {
	return saveKey(siphash.Hash(sipKey0, sipKey1, sb))
}

// arenaEntry is one DFS-discovered cycle node, referenced by index
// rather than pointer while the search is in progress — per the design
// notes' arena-of-indices construction — so the eventual cyclic
// self-reference can be closed with a plain integer assignment before
// the whole arena is materialized into real *CycleNode pointers exactly
// once at the end.
type arenaEntry struct {
	doJump  bool
	tailIdx int // -1 means "no tail (yet)"
}

// findCycle runs the oracle: a DFS over speculative execution starting
// at prog.PC, using ctx (expected to be a virtual context — its output
// must be a no-op) to drive execution without observable side effects.
// It returns the discovered CycleNode head, or nil if no cycle exists
// reachable from prog.PC without the speculative walk hitting a halt
// first.
func findCycle(seed *Program, ctx Context) (*CycleNode, error) {
	prog := seed.Fork()

	var path []jumpFlag
	var history [][]byte

	// breadcrumbs maps save-states (as produced for a followed upward
	// jump) to an arena index, with breadcrumbOrder recording insertion
	// order so popping removes the most recently inserted entry first
	// (Python dict.popitem()'s LIFO semantics).
	breadcrumbs := make(map[saveKey]int)
	var breadcrumbOrder []saveKey

	var arena []arenaEntry
	decisionIdx := -1
	haveDecision := false

outer:
	for {
		for {
			step, err := prog.RunUntilBranch(ctx)
			if err != nil {
				// Speculative execution treats any fatal condition as
				// abandoning this timeline, exactly like hitting a halt.
				haveDecision, decisionIdx = false, -1
				break
			}
			if step.Kind == StepHalt {
				haveDecision, decisionIdx = false, -1
				break
			}

			pcCont, pcJump := step.Next, step.Jump
			sb := prog.Jump(pcJump).Save()

			flag := jumpFlag{}
			if pcJump < pcCont {
				flag.Upward = true
				if idx, ok := breadcrumbs[hashSave(sb)]; ok {
					haveDecision, decisionIdx = true, idx
					break
				}
			}

			history = append(history, sb)
			path = append(path, flag)
			prog.PC = pcCont
		}

		for len(path) > 0 {
			prev := path[len(path)-1]
			path = path[:len(path)-1]

			if haveDecision {
				switch {
				case !prev.Follow:
					history = history[:len(history)-1]
					arena = append(arena, arenaEntry{doJump: false, tailIdx: decisionIdx})
					decisionIdx = len(arena) - 1
				case prev.Upward:
					bkey := breadcrumbOrder[len(breadcrumbOrder)-1]
					breadcrumbOrder = breadcrumbOrder[:len(breadcrumbOrder)-1]
					prevIdx := breadcrumbs[bkey]
					delete(breadcrumbs, bkey)
					arena[prevIdx].tailIdx = decisionIdx
					decisionIdx = prevIdx
				default:
					arena = append(arena, arenaEntry{doJump: true, tailIdx: decisionIdx})
					decisionIdx = len(arena) - 1
				}
				continue
			}

			if !prev.Follow {
				next := jumpFlag{Follow: true, Upward: prev.Upward}
				path = append(path, next)
				sb := history[len(history)-1]
				history = history[:len(history)-1]
				if prev.Upward {
					arena = append(arena, arenaEntry{doJump: true, tailIdx: -1})
					key := hashSave(sb)
					breadcrumbs[key] = len(arena) - 1
					breadcrumbOrder = append(breadcrumbOrder, key)
				}
				prog.Restore(sb)
				continue outer
			}

			if prev.Upward {
				bkey := breadcrumbOrder[len(breadcrumbOrder)-1]
				breadcrumbOrder = breadcrumbOrder[:len(breadcrumbOrder)-1]
				delete(breadcrumbs, bkey)
			}
		}

		// path is empty: search is over.
		return materialize(arena, decisionIdx, haveDecision), nil
	}
}

// materialize turns the index-addressed arena into real *CycleNode
// pointers, allowing the genuine self-reference a true infinite loop's
// schedule needs. Building every node before wiring tails means a tail
// index pointing backward (the common case) or at itself (the closing
// splice) both resolve correctly.
func materialize(arena []arenaEntry, decisionIdx int, haveDecision bool) *CycleNode {
	if !haveDecision || decisionIdx < 0 {
		return nil
	}
	nodes := make([]*CycleNode, len(arena))
	for i, e := range arena {
		nodes[i] = &CycleNode{DoJump: e.doJump}
	}
	for i, e := range arena {
		if e.tailIdx >= 0 {
			nodes[i].Tail = nodes[e.tailIdx]
		}
	}
	return nodes[decisionIdx]
}

// FindCycle is the exported entry point: find_cycle(pc) in spec terms,
// seeded at seed.PC.
func FindCycle(seed *Program, ctx Context) (*CycleNode, error) {
	return findCycle(seed, ctx)
}
