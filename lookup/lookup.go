// Package lookup implements the iterative Kademlia node-lookup procedure
// that drives both peer discovery (FIND_NODE) and value retrieval
// (FIND_VALUE). It is transport-agnostic: callers supply a Caller that
// performs the actual RPC round-trip, so the algorithm can be exercised
// with a fake in unit tests without a real socket.
package lookup

import (
	"context"
	"fmt"
	"sync"

	"github.com/shabnasiraj/d7024e-dhtnode/id"
	"github.com/shabnasiraj/d7024e-dhtnode/routing"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Alpha is the lookup parallelism parameter: the number of contacts
// probed from the shortlist's head at the start of a lookup, and the
// maximum number of concurrent probes launched within a single round.
const Alpha = 3

// FindNodeResult is the outcome of probing one contact for FIND_NODE or
// FIND_VALUE.
type FindNodeResult struct {
	// Nodes is populated when the probe returned a node list (FIND_NODE
	// always; FIND_VALUE when the peer didn't have the value).
	Nodes []routing.Contact
	// Value is populated, with Found true, when a FIND_VALUE probe hit a
	// peer holding the key.
	Value []byte
	Found bool
}

// Caller performs one round-trip RPC against a contact. Implementations
// are expected to return (nil, err) for "no response" outcomes such as
// timeouts — lookup treats any error as "skip this contact and move on".
type Caller interface {
	Probe(ctx context.Context, target routing.Contact, lookupTarget id.ID, findValue bool) (*FindNodeResult, error)
}

// Result is what a completed lookup produced.
type Result struct {
	// Value is set, with Found true, if find_value was requested and some
	// peer held the key.
	Value []byte
	Found bool
	// Closest holds up to k contacts, populated when the lookup converged
	// without finding a value (or find_value was false).
	Closest []Contact
}

// Contact is a re-export convenience alias so callers of this package
// don't need to import routing just to name the type lookup already
// depends on.
type Contact = routing.Contact

var log = logrus.WithField("component", "lookup")

// Run executes the iterative lookup for target against rt's locally known
// contacts, using caller to probe peers. If findValue is true and some
// probed peer holds the value, Run returns it immediately. Otherwise it
// converges on the k closest known contacts and returns them.
//
// Run returns an error only when the local table has no contacts to seed
// the shortlist with; every other failure mode (timeouts, malformed
// responses, individual probe errors) is absorbed internally as "skip
// this contact."
func Run(ctx context.Context, rt *routing.Table, caller Caller, target id.ID, findValue bool) (*Result, error) {
	seed := rt.NClosest(target, Alpha)
	if len(seed) == 0 {
		return nil, fmt.Errorf("lookup: routing table has no contacts to seed lookup for %s", target)
	}

	shortlist := routing.SortByDistance(seed, target)
	closestSeen := shortlist[0]
	contacted := make(map[string]bool)

	for {
		round := pendingRound(shortlist, contacted)

		found, value, newNodes, err := probeRound(ctx, rt, caller, round, target, findValue)
		if err != nil {
			return nil, err
		}
		if found {
			return &Result{Value: value, Found: true}, nil
		}

		for _, c := range round {
			contacted[c.ID.String()] = true
		}

		shortlist = routing.DedupByID(append(shortlist, newNodes...))
		shortlist = routing.SortByDistance(shortlist, target)

		newClosest := shortlist[0]

		// Termination: if the new closest contact is no closer than the
		// closest contact seen before this round, the lookup has
		// converged.
		if closestSeen.ID.Xor(target).Cmp(newClosest.ID.Xor(target)) <= 0 {
			return &Result{Closest: truncate(shortlist, rt.K())}, nil
		}
		closestSeen = newClosest
	}
}

// pendingRound returns the shortlist entries not yet contacted.
func pendingRound(shortlist []Contact, contacted map[string]bool) []Contact {
	var round []Contact
	for _, c := range shortlist {
		if !contacted[c.ID.String()] {
			round = append(round, c)
		}
	}
	return round
}

// probeRound issues up to Alpha concurrent probes for the round's
// contacts, bounded by a per-round errgroup barrier: all probes in the
// round complete (or are cancelled) before the round's results are
// merged, which is what makes the "no progress" termination check safe
// to apply to a parallel probe set.
func probeRound(ctx context.Context, rt *routing.Table, caller Caller, round []Contact, target id.ID, findValue bool) (found bool, value []byte, nodes []Contact, err error) {
	if len(round) == 0 {
		return false, nil, nil, nil
	}

	var (
		mu         sync.Mutex
		foundValue []byte
		gotValue   bool
		foundNodes []Contact
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, Alpha)

	for _, contact := range round {
		contact := contact
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()

			result, perr := caller.Probe(gctx, contact, target, findValue)
			if perr != nil {
				log.WithFields(logrus.Fields{
					"contact": contact.ID.String(),
					"error":   perr.Error(),
				}).Debug("probe failed or timed out, skipping contact")
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if findValue && result.Found {
				if !gotValue {
					gotValue = true
					foundValue = result.Value
					cancel()
				}
				return nil
			}
			for _, n := range result.Nodes {
				rt.Add(n)
				if !routing.ContainsID(foundNodes, n.ID) {
					foundNodes = append(foundNodes, n)
				}
			}
			return nil
		})
	}

	// errgroup.Group.Wait only ever returns an error from a Go closure
	// returning one; this implementation never returns an error from the
	// closure (probe failures are absorbed above), so the error here is
	// always nil. It's still checked for defensiveness against future
	// changes to the closure.
	if werr := g.Wait(); werr != nil {
		return false, nil, nil, fmt.Errorf("lookup: round failed: %w", werr)
	}

	if gotValue {
		return true, foundValue, nil, nil
	}
	return false, nil, foundNodes, nil
}

func truncate(nodes []Contact, k int) []Contact {
	if k > len(nodes) {
		k = len(nodes)
	}
	return nodes[:k]
}
