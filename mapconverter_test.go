package mapconverter

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladamery/map-converter/temporal"
)

type Status int

const (
	StatusInactive Status = iota
	StatusActive
)

func (s Status) MarshalText() ([]byte, error) {
	switch s {
	case StatusInactive:
		return []byte("INACTIVE"), nil
	case StatusActive:
		return []byte("ACTIVE"), nil
	}

	return nil, fmt.Errorf("unknown status %d", int(s))
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "INACTIVE":
		*s = StatusInactive
	case "ACTIVE":
		*s = StatusActive
	default:
		return fmt.Errorf("unknown status %q", text)
	}

	return nil
}

type Address struct {
	Street string `mapconv:"street"`
	City   string `mapconv:"city"`
}

type Order struct {
	ID    int64 `mapconv:"id"`
	Total float64
	Buyer *Customer `mapconv:",ignorecircular"`
}

type Customer struct {
	ID       int64  `mapconv:"id"`
	Name     string `mapconv:"name"`
	Password string `mapconv:"-"`
	Status   Status `mapconv:"status"`

	Shipping *Address `mapconv:"shipping"`
	Billing  *Address `mapconv:"billing"`
	Orders   []*Order `mapconv:"orders"`

	Tags map[string]string `mapconv:"tags"`

	CreatedAt time.Time          `mapconv:"created_at" mapconvtime:"strategy=epoch_millis"`
	Birthday  temporal.LocalDate `mapconv:"birthday"`
}

func buildShop(t *testing.T, opts ...Option) *Result {
	t.Helper()

	c := NewCompiler(opts...)
	c.Register(Customer{})
	c.Register(Order{})
	c.Register(Address{})

	return c.Build()
}

func TestBuildOrdersDependenciesFirst(t *testing.T) {
	r := buildShop(t)

	addrName := "github.com/miladamery/map-converter.Address"
	names := r.Names()
	require.Len(t, names, 3)
	assert.Equal(t, addrName, names[0])

	// Customer and Order reference each other; that is a warning, not an
	// error, and both keep their plans.
	assert.False(t, r.Diagnostics.HasErrors())
	require.Len(t, r.Diagnostics.Warnings, 1)
	assert.Equal(t, "dependency_cycle", r.Diagnostics.Warnings[0].Code)
	assert.NotNil(t, MapperFor[Customer](r))
	assert.NotNil(t, MapperFor[Order](r))
}

func TestRoundTrip(t *testing.T) {
	r := buildShop(t)
	m := MapperFor[Customer](r)
	require.NotNil(t, m)

	cust := &Customer{
		ID:       7,
		Name:     "Ada",
		Password: "hunter2",
		Status:   StatusActive,
		Shipping: &Address{Street: "Main 1", City: "Graz"},
		Tags:     map[string]string{"tier": "gold"},
		CreatedAt: time.UnixMilli(1709634600000).UTC(),
		Birthday:  temporal.LocalDate{Year: 1990, Month: time.April, Day: 1},
	}
	cust.Orders = []*Order{
		{ID: 1, Total: 9.5, Buyer: cust},
		{ID: 2, Total: 20},
	}

	out, err := m.ToMap(cust)
	require.NoError(t, err)
	t.Logf("encoded:\n%s", spew.Sdump(out))

	assert.Equal(t, int64(7), out["id"])
	assert.Equal(t, "Ada", out["name"])
	assert.Equal(t, "ACTIVE", out["status"])
	assert.Equal(t, int64(1709634600000), out["created_at"])
	assert.Equal(t, "1990-04-01", out["birthday"])

	_, hasPassword := out["Password"]
	assert.False(t, hasPassword)

	_, hasBilling := out["billing"]
	assert.False(t, hasBilling, "nil nested pointers are omitted")

	shipping, ok := out["shipping"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Graz", shipping["city"])

	orders, ok := out["orders"].([]any)
	require.True(t, ok)
	require.Len(t, orders, 2)

	first, ok := orders[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(1), first["id"])

	// The buyer link closes a cycle back to the customer in progress, so
	// the nested order omits it instead of recursing forever.
	_, hasBuyer := first["Buyer"]
	assert.False(t, hasBuyer)

	got, err := m.FromMap(out)
	require.NoError(t, err)

	back := got.(*Customer)
	assert.Equal(t, cust.ID, back.ID)
	assert.Equal(t, cust.Name, back.Name)
	assert.Empty(t, back.Password)
	assert.Equal(t, StatusActive, back.Status)
	assert.Equal(t, cust.Shipping, back.Shipping)
	assert.Equal(t, cust.Tags, back.Tags)
	assert.Equal(t, cust.CreatedAt, back.CreatedAt)
	assert.Equal(t, cust.Birthday, back.Birthday)

	require.Len(t, back.Orders, 2)
	assert.Equal(t, int64(1), back.Orders[0].ID)
	assert.Nil(t, back.Orders[0].Buyer)

	// Encoding the decoded instance reproduces the map exactly.
	again, err := m.ToMap(back)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestSharedInstanceOnSiblingPathsEncodesBothTimes(t *testing.T) {
	r := buildShop(t)
	m := MapperFor[Customer](r)

	home := &Address{Street: "Main 1", City: "Graz"}
	cust := &Customer{ID: 1, Name: "Ada", Shipping: home, Billing: home}

	out, err := m.ToMap(cust)
	require.NoError(t, err)

	// Visited tracking is scoped to the path, not the conversion: the
	// same address appears in full under both keys.
	shipping := out["shipping"].(map[string]any)
	billing := out["billing"].(map[string]any)
	assert.Equal(t, shipping, billing)
	assert.Equal(t, "Graz", billing["city"])
}

func TestExcludedFieldIgnoredOnDecode(t *testing.T) {
	r := buildShop(t)
	m := MapperFor[Customer](r)

	got, err := m.FromMap(map[string]any{"Password": "sneaky", "name": "Ada"})
	require.NoError(t, err)

	back := got.(*Customer)
	assert.Empty(t, back.Password, "excluded fields ignore map content")
	assert.Equal(t, "Ada", back.Name)
}

type PeerA struct {
	Name string `mapconv:"name"`
	Ref  *PeerB `mapconv:"ref"`
}

type PeerB struct {
	Name string `mapconv:"name"`
	Ref  *PeerA `mapconv:"ref"`
}

func TestMutualReferencesTerminate(t *testing.T) {
	c := NewCompiler()
	c.Register(PeerA{})
	c.Register(PeerB{})
	r := c.Build()

	require.False(t, r.Diagnostics.HasErrors())

	a := &PeerA{Name: "a"}
	b := &PeerB{Name: "b", Ref: a}
	a.Ref = b

	out, err := MapperFor[PeerA](r).ToMap(a)
	require.NoError(t, err)

	// The ancestor cycle is cut exactly one level down: a's ref holds b,
	// b's ref back to a is absent.
	ref, ok := out["ref"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "b", ref["name"])

	_, hasBack := ref["ref"]
	assert.False(t, hasBack)
}

type ListNode struct {
	Value int       `mapconv:"value"`
	Next  *ListNode `mapconv:"next,maxdepth=2"`
}

func TestMaxDepthCutsTraversal(t *testing.T) {
	c := NewCompiler()
	c.Register(ListNode{})
	r := c.Build()

	m := MapperFor[ListNode](r)
	require.NotNil(t, m)

	n3 := &ListNode{Value: 3}
	n2 := &ListNode{Value: 2, Next: n3}
	n1 := &ListNode{Value: 1, Next: n2}

	out, err := m.ToMap(n1)
	require.NoError(t, err)

	next, ok := out["next"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, next["value"])

	_, deeper := next["next"]
	assert.False(t, deeper)
}

func TestEnumDecodeErrorSurfaces(t *testing.T) {
	r := buildShop(t)
	m := MapperFor[Customer](r)

	_, err := m.FromMap(map[string]any{"status": "SUSPENDED"})
	require.Error(t, err)

	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, "Status", convErr.Field)
	assert.Equal(t, "status", convErr.Key)
}

func TestTemporalParseErrorSurfaces(t *testing.T) {
	r := buildShop(t)
	m := MapperFor[Customer](r)

	_, err := m.FromMap(map[string]any{"birthday": "not a date"})

	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.ErrorIs(t, err, temporal.ErrParse)
}

func TestFromMapIntoPreservesUnmentionedFields(t *testing.T) {
	r := buildShop(t)
	m := MapperFor[Customer](r)

	cust := Customer{ID: 1, Name: "Ada", Tags: map[string]string{"k": "v"}}

	err := m.FromMapInto(map[string]any{"name": "Grace"}, &cust)
	require.NoError(t, err)

	assert.Equal(t, "Grace", cust.Name)
	assert.Equal(t, int64(1), cust.ID)
	assert.Equal(t, map[string]string{"k": "v"}, cust.Tags)
}

type Snapshot struct {
	ID   int64  `mapconv:"id"`
	Note string `mapconv:"note"`
}

func TestImmutableDecodeStartsFromZero(t *testing.T) {
	c := NewCompiler()
	c.RegisterImmutable(Snapshot{})
	r := c.Build()

	m := MapperFor[Snapshot](r)
	require.NotNil(t, m)

	snap := Snapshot{ID: 1, Note: "stale"}

	err := m.FromMapInto(map[string]any{"id": int64(2)}, &snap)
	require.NoError(t, err)

	assert.Equal(t, int64(2), snap.ID)
	assert.Empty(t, snap.Note, "immutable construction resets absent fields")
}

type Scores struct {
	ByLevel map[int]string `mapconv:"by_level"`
}

func TestMapKeyCoercionModes(t *testing.T) {
	scores := &Scores{ByLevel: map[int]string{1: "bronze", 2: "silver"}}

	t.Run("default is one-way", func(t *testing.T) {
		c := NewCompiler()
		c.Register(Scores{})
		r := c.Build()

		require.False(t, r.Diagnostics.HasErrors())
		require.Len(t, r.Diagnostics.Warnings, 1)
		assert.Equal(t, "map_key_lossy", r.Diagnostics.Warnings[0].Code)

		m := MapperFor[Scores](r)
		out, err := m.ToMap(scores)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"1": "bronze", "2": "silver"}, out["by_level"])

		got, err := m.FromMap(out)
		require.NoError(t, err)
		assert.Nil(t, got.(*Scores).ByLevel)
	})

	t.Run("reject fails the build", func(t *testing.T) {
		c := NewCompiler(WithKeyCoercion(KeyCoerceReject))
		c.Register(Scores{})
		r := c.Build()

		assert.True(t, r.Diagnostics.HasErrors())
		assert.Nil(t, MapperFor[Scores](r))
	})

	t.Run("round trip restores keys", func(t *testing.T) {
		c := NewCompiler(WithKeyCoercion(KeyCoerceRoundTrip))
		c.Register(Scores{})
		r := c.Build()

		require.False(t, r.Diagnostics.HasErrors())

		m := MapperFor[Scores](r)
		out, err := m.ToMap(scores)
		require.NoError(t, err)

		got, err := m.FromMap(out)
		require.NoError(t, err)
		assert.Equal(t, scores.ByLevel, got.(*Scores).ByLevel)
	})
}

func TestInvalidEntityDropsOnlyItself(t *testing.T) {
	c := NewCompiler()
	c.Register(42)
	c.Register(Address{})
	r := c.Build()

	require.True(t, r.Diagnostics.HasErrors())
	assert.Equal(t, "not_a_struct", r.Diagnostics.Errors[0].Code)
	assert.NotNil(t, MapperFor[Address](r))
}

type BadChild struct {
	Self *BadChild `mapconv:",maxdepth=oops"`
}

type Parent struct {
	Child BadChild `mapconv:"child"`
}

func TestDroppedNestedTargetCascades(t *testing.T) {
	c := NewCompiler()
	c.Register(Parent{})
	c.Register(BadChild{})
	c.Register(Address{})
	r := c.Build()

	require.True(t, r.Diagnostics.HasErrors())

	codes := make(map[string]bool)
	for _, d := range r.Diagnostics.Errors {
		codes[d.Code] = true
	}

	assert.True(t, codes["bad_field_tag"])
	assert.True(t, codes["nested_target_missing"])

	assert.Nil(t, MapperFor[BadChild](r))
	assert.Nil(t, MapperFor[Parent](r))
	assert.NotNil(t, MapperFor[Address](r))
}

func TestConcurrentConversions(t *testing.T) {
	r := buildShop(t)
	m := MapperFor[Customer](r)

	cust := &Customer{ID: 7, Name: "Ada", Shipping: &Address{City: "Graz"}}
	cust.Orders = []*Order{{ID: 1, Buyer: cust}}

	var wg sync.WaitGroup

	errs := make(chan error, 32)

	for g := 0; g < 32; g++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < 50; i++ {
				out, err := m.ToMap(cust)
				if err != nil {
					errs <- err
					return
				}

				if _, err := m.FromMap(out); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}
}

func TestSummaries(t *testing.T) {
	r := buildShop(t)

	sums := r.Summaries()
	require.Len(t, sums, 3)
	assert.Equal(t, "AddressMapper", sums[0].Artifact)

	var custSum *PlanSummary

	for i := range sums {
		if sums[i].Artifact == "CustomerMapper" {
			custSum = &sums[i]
		}
	}

	require.NotNil(t, custSum)

	fields := make(map[string]string, len(custSum.Fields))
	for _, f := range custSum.Fields {
		fields[f.Name] = f.Category
	}

	assert.Equal(t, "enum", fields["Status"])
	assert.Equal(t, "temporal", fields["CreatedAt"])
	assert.Equal(t, "collection", fields["Orders"])
	assert.Equal(t, "map", fields["Tags"])

	_, hasExcluded := fields["Password"]
	assert.False(t, hasExcluded)
}

// vendorUser stands in for a type from a package we cannot tag.
type vendorUser struct {
	ID    int64
	Token []byte
}

func TestOverlayWithConverter(t *testing.T) {
	c := NewCompiler()
	c.RegisterForeignType(vendorUser{})
	c.RegisterConverter("hexBytes",
		func(src any) (any, error) {
			return hex.EncodeToString(src.([]byte)), nil
		},
		func(src any) (any, error) {
			s, ok := src.(string)
			if !ok {
				return nil, fmt.Errorf("expected hex string, got %T", src)
			}

			return hex.DecodeString(s)
		})
	c.RegisterOverlay(OverlayConfig{
		Target:   "github.com/miladamery/map-converter.vendorUser",
		Artifact: "VendorUserMapper",
		Fields: []OverlayField{
			{Name: "id", TargetField: "ID"},
			{Name: "token", TargetField: "Token", Converter: "hexBytes"},
		},
	})

	r := c.Build()
	require.False(t, r.Diagnostics.HasErrors(), "%v", r.Diagnostics.Errors)

	m := MapperFor[vendorUser](r)
	require.NotNil(t, m)
	assert.Equal(t, "VendorUserMapper", m.Name())

	out, err := m.ToMap(&vendorUser{ID: 9, Token: []byte{0xde, 0xad}})
	require.NoError(t, err)
	assert.Equal(t, "dead", out["token"])

	got, err := m.FromMap(out)
	require.NoError(t, err)
	assert.Equal(t, &vendorUser{ID: 9, Token: []byte{0xde, 0xad}}, got)
}

func TestOverlayUnknownTargetType(t *testing.T) {
	c := NewCompiler()
	c.RegisterOverlay(OverlayConfig{Target: "ghost.Type"})
	r := c.Build()

	require.True(t, r.Diagnostics.HasErrors())
	assert.Equal(t, "overlay_target_unknown", r.Diagnostics.Errors[0].Code)
}

func TestLoadOverlayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	data := `
overlays:
  - target: github.com/miladamery/map-converter.vendorUser
    mapper_name: VendorUserMapper
    fields:
      - name: id
        field: ID
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c := NewCompiler()
	c.RegisterForeignType(vendorUser{})
	require.NoError(t, c.LoadOverlayFile(path))

	r := c.Build()
	require.False(t, r.Diagnostics.HasErrors())

	m := MapperFor[vendorUser](r)
	require.NotNil(t, m)

	out, err := m.ToMap(&vendorUser{ID: 4, Token: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(4)}, out)
}

func TestNilPointerEncodesToNilMap(t *testing.T) {
	r := buildShop(t)
	m := MapperFor[Customer](r)

	out, err := m.ToMap((*Customer)(nil))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestFromMapNilYieldsZeroValue(t *testing.T) {
	r := buildShop(t)
	m := MapperFor[Customer](r)

	got, err := m.FromMap(nil)
	require.NoError(t, err)
	assert.Equal(t, &Customer{}, got)
}

func TestUnsetTemporalFieldsOmittedOnEncode(t *testing.T) {
	r := buildShop(t)
	m := MapperFor[Customer](r)

	cust := &Customer{ID: 7, Name: "Ada"}

	out, err := m.ToMap(cust)
	require.NoError(t, err)
	assert.NotContains(t, out, "birthday")
	assert.NotContains(t, out, "created_at")

	back, err := m.FromMap(out)
	require.NoError(t, err)
	assert.Equal(t, cust, back)
}
