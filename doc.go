/*
Package fxcore is the event-sourced aggregate and projection runtime for the
consulting marketplace, built on top of NATS JetStream.

Setup

Initialize a Core instance by passing the NATS connection and a type registry
holding every command, event, and view type.

	core, err := fxcore.New(nc, fxcore.TypeRegistry(reg))

EventStore

Each entity type owns one stream. Create an event store for partners. This
defaults to a subject space of "partners.>".

	es := core.EventStore("partners")
	err := es.Create(&nats.StreamConfig{Storage: nats.FileStorage})

Append events to a partner's subject. ExpectSequence of zero means no other
events exist for this subject yet; a mismatch reports ErrSequenceConflict.

	seq, err := es.Append(ctx, subject, []*fxcore.Event{{
		Data: &partner.Created{EmailAddress: "leo@fortium.com"},
	}}, fxcore.ExpectSequence(0))

Runtime

The Runtime owns one aggregate actor per entity identity. All mutating
commands for an identity are processed strictly one at a time, in arrival
order. Read-only snapshot queries interleave freely.

	rt, err := fxcore.NewRuntime(core, dispatcher)
	err = rt.Submit(ctx, "partners", "leo@fortium.com", &partner.Create{...})
	snap, err := rt.Ask(ctx, "partners", "leo@fortium.com")

Choreography and projections

A Choreography instance reacts to one entity's committed events by deriving
commands for other entities, with at-least-once delivery. A ProjectionEngine
folds committed events into read-optimized views stored in JetStream
key-value buckets.
*/
package fxcore
