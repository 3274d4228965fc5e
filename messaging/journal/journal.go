// Package journal records the status events the connector emits. Events are nostr events so they
// can be relayed as-is; events emitted inside a frame that fails are discarded with the frame.
package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/exp/slices"
	"vaultconnector/engine/library"
)

const (
	KindOwnerRegistered    = 641000
	KindOperatorStatus     = 641002
	KindNonceStatus        = 641004
	KindNonceUsed          = 641006
	KindCollateralStatus   = 641010
	KindControllerStatus   = 641012
	KindCallWithContext    = 641020
	KindAccountStatusCheck = 641030
	KindVaultStatusCheck   = 641032
)

var opNames = map[int]string{
	KindOwnerRegistered:    "connector.owner.registered",
	KindOperatorStatus:     "connector.operator.status",
	KindNonceStatus:        "connector.nonce.status",
	KindNonceUsed:          "connector.nonce.used",
	KindCollateralStatus:   "connector.collateral.status",
	KindControllerStatus:   "connector.controller.status",
	KindCallWithContext:    "connector.call",
	KindAccountStatusCheck: "connector.check.account",
	KindVaultStatusCheck:   "connector.check.vault",
}

type Journal struct {
	author string
	events []nostr.Event
	clock  func() time.Time
}

func New(author library.Address, clock func() time.Time) *Journal {
	if clock == nil {
		clock = time.Now
	}
	return &Journal{author: author.Hex(), clock: clock}
}

// Emit appends an event of kind. tags are key/value pairs; content is marshalled to JSON when
// not nil.
func (j *Journal) Emit(kind int, content any, tags ...string) nostr.Event {
	e := nostr.Event{
		PubKey:    j.author,
		CreatedAt: nostr.Timestamp(j.clock().Unix()),
		Kind:      kind,
		Tags:      nostr.Tags{nostr.Tag{"op", opNames[kind]}},
	}
	for i := 0; i+1 < len(tags); i += 2 {
		e.Tags = append(e.Tags, nostr.Tag{tags[i], tags[i+1]})
	}
	if content != nil {
		b, err := json.Marshal(content)
		if err != nil {
			library.LogCLI(err.Error(), 1)
		}
		e.Content = string(b)
	}
	e.ID = e.GetID()
	j.events = append(j.events, e)
	library.LogCLI(fmt.Sprintf("%s %v", opNames[kind], e.Tags[1:]), 3)
	return e
}

func (j *Journal) Events() []nostr.Event {
	return slices.Clone(j.events)
}

// Filter returns the events of the given kind in emission order.
func (j *Journal) Filter(kind int) (el []nostr.Event) {
	for _, e := range j.events {
		if e.Kind == kind {
			el = append(el, e)
		}
	}
	return
}

func (j *Journal) Len() int {
	return len(j.events)
}

func (j *Journal) Snapshot() any {
	return len(j.events)
}

func (j *Journal) Revert(snapshot any) {
	n := snapshot.(int)
	if n < len(j.events) {
		j.events = j.events[:n]
	}
}
