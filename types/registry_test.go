package types_test

import (
	"testing"

	"github.com/fortium/fxcore/testutil"
	"github.com/fortium/fxcore/types"
)

type orderPlaced struct {
	OrderID string `json:"order_id"`
	Total   int    `json:"total"`
}

type orderShipped struct {
	OrderID string `json:"order_id"`
}

func testTypes() map[string]*types.Type {
	return map[string]*types.Type{
		"order-placed":  {Init: func() any { return &orderPlaced{} }},
		"order-shipped": {Init: func() any { return &orderShipped{} }},
	}
}

func TestRegistryLookupInit(t *testing.T) {
	is := testutil.NewIs(t)

	r, err := types.NewRegistry(testTypes())
	is.NoErr(err)

	// Lookup resolves both the pointer and the value type.
	name, err := r.Lookup(&orderPlaced{})
	is.NoErr(err)
	is.Equal(name, "order-placed")

	name, err = r.Lookup(orderPlaced{})
	is.NoErr(err)
	is.Equal(name, "order-placed")

	v, err := r.Init("order-shipped")
	is.NoErr(err)
	if _, ok := v.(*orderShipped); !ok {
		t.Fatalf("expected *orderShipped, got %T", v)
	}

	_, err = r.Init("never-registered")
	is.Err(err, types.ErrTypeNotRegistered)

	_, err = r.Lookup(&struct{ X int }{})
	is.Err(err, types.ErrNoTypeForStruct)
}

func TestRegistryMarshalRoundTrip(t *testing.T) {
	is := testutil.NewIs(t)

	r, err := types.NewRegistry(testTypes())
	is.NoErr(err)
	is.Equal(r.CodecName(), "json")

	b, err := r.Marshal(&orderPlaced{OrderID: "o-1", Total: 100})
	is.NoErr(err)

	v, err := r.UnmarshalType(b, "order-placed")
	is.NoErr(err)
	is.Equal(v, &orderPlaced{OrderID: "o-1", Total: 100})
}

func TestRegistryCodecOption(t *testing.T) {
	is := testutil.NewIs(t)

	r, err := types.NewRegistry(testTypes(), types.Codec("msgpack"))
	is.NoErr(err)
	is.Equal(r.CodecName(), "msgpack")

	b, err := r.Marshal(&orderPlaced{OrderID: "o-1", Total: 100})
	is.NoErr(err)

	v, err := r.UnmarshalType(b, "order-placed")
	is.NoErr(err)
	is.Equal(v, &orderPlaced{OrderID: "o-1", Total: 100})

	_, err = types.NewRegistry(testTypes(), types.Codec("never-a-codec"))
	is.Err(err, nil)
}

func TestRegistryValidation(t *testing.T) {
	is := testutil.NewIs(t)

	// Names with invalid characters.
	_, err := types.NewRegistry(map[string]*types.Type{
		"not a name": {Init: func() any { return &orderPlaced{} }},
	})
	is.Err(err, types.ErrTypeNotValid)

	// Init must return a pointer to a struct.
	_, err = types.NewRegistry(map[string]*types.Type{
		"order-placed": {Init: func() any { return orderPlaced{} }},
	})
	is.Err(err, types.ErrTypeNotValid)

	_, err = types.NewRegistry(map[string]*types.Type{
		"order-placed": {Init: nil},
	})
	is.Err(err, types.ErrTypeNotValid)
}

func TestMerge(t *testing.T) {
	is := testutil.NewIs(t)

	merged, err := types.Merge(
		map[string]*types.Type{"order-placed": {Init: func() any { return &orderPlaced{} }}},
		map[string]*types.Type{"order-shipped": {Init: func() any { return &orderShipped{} }}},
	)
	is.NoErr(err)
	is.Equal(len(merged), 2)

	_, err = types.Merge(
		map[string]*types.Type{"order-placed": {Init: func() any { return &orderPlaced{} }}},
		map[string]*types.Type{"order-placed": {Init: func() any { return &orderShipped{} }}},
	)
	is.Err(err, types.ErrTypeNotValid)
}
