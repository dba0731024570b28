package descriptor

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miladamery/map-converter/internal/diagnostic"
	"github.com/miladamery/map-converter/internal/schema"
	"github.com/miladamery/map-converter/temporal"
)

type department struct {
	Name string
}

type employee struct {
	ID       int64  `mapconv:"id"`
	FullName string `mapconv:"full_name"`
	Secret   string `mapconv:"-"`
	internal string

	Department *department
	Manager    *employee `mapconv:",ignorecircular"`
	Chain      *employee `mapconv:",maxdepth=3"`

	HiredAt  time.Time            `mapconvtime:"strategy=epoch_millis"`
	Birthday temporal.LocalDate   `mapconv:"birthday"`
	Reviews  []temporal.LocalDate `mapconvtime:"strategy=pattern,pattern=02.01.2006"`
}

func knownAll(names ...string) func(string) bool {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}

	return func(q string) bool {
		_, ok := set[q]
		return ok
	}
}

func TestBuildEmployee(t *testing.T) {
	diags := &diagnostic.Diagnostics{}

	empName := schema.QualifiedName(reflect.TypeOf(employee{}))
	depName := schema.QualifiedName(reflect.TypeOf(department{}))

	d := Build(Declaration{Type: reflect.TypeOf(employee{})}, knownAll(empName, depName), diags)
	require.NotNil(t, d)
	require.False(t, diags.HasErrors())

	assert.Equal(t, empName, d.QualifiedName)
	assert.Equal(t, "employeeMapper", d.Artifact)
	assert.Equal(t, SourceOwn, d.Source)

	byName := make(map[string]FieldDescriptor, len(d.Fields))
	for _, f := range d.Fields {
		byName[f.Name] = f
	}

	// Unexported fields are not part of the schema at all.
	_, ok := byName["internal"]
	assert.False(t, ok)

	assert.Equal(t, "id", byName["ID"].MapKey)
	assert.Equal(t, "full_name", byName["FullName"].MapKey)
	assert.True(t, byName["Secret"].Excluded)
	assert.Equal(t, "Department", byName["Department"].MapKey)

	assert.Equal(t, ModeIgnoreIfCircular, byName["Manager"].Circular.Mode)
	assert.Equal(t, ModeMaxDepth, byName["Chain"].Circular.Mode)
	assert.Equal(t, 3, byName["Chain"].Circular.MaxDepth)

	assert.Equal(t, temporal.StrategyEpochMillis, byName["HiredAt"].Temporal.Strategy)
	assert.Equal(t, temporal.StrategyAuto, byName["Birthday"].Temporal.Strategy)
	assert.True(t, byName["Birthday"].Temporal.Lenient)

	reviews := byName["Reviews"]
	require.Equal(t, schema.KindCollection, reviews.Category.Kind)
	assert.Equal(t, temporal.StrategyCustomPattern, reviews.Temporal.Strategy)
	assert.Equal(t, "02.01.2006", reviews.Temporal.Pattern)
}

func TestBuildSelfAndNestedDependencies(t *testing.T) {
	diags := &diagnostic.Diagnostics{}

	empName := schema.QualifiedName(reflect.TypeOf(employee{}))
	depName := schema.QualifiedName(reflect.TypeOf(department{}))

	d := Build(Declaration{Type: reflect.TypeOf(employee{})}, knownAll(empName, depName), diags)
	require.NotNil(t, d)

	// Self-references are resolved at runtime, not ordered.
	assert.Equal(t, []string{depName}, d.Dependencies())
}

func TestBuildRejectsNonStruct(t *testing.T) {
	diags := &diagnostic.Diagnostics{}

	d := Build(Declaration{Type: reflect.TypeOf(42)}, nil, diags)
	assert.Nil(t, d)
	require.True(t, diags.HasErrors())
	assert.Equal(t, "not_a_struct", diags.Errors[0].Code)
}

func TestBuildRejectsBadTag(t *testing.T) {
	type badTag struct {
		N *badTag `mapconv:",maxdepth=zero"`
	}

	diags := &diagnostic.Diagnostics{}

	d := Build(Declaration{Type: reflect.TypeOf(badTag{})}, nil, diags)
	assert.Nil(t, d)
	require.True(t, diags.HasErrors())
	assert.Equal(t, "bad_field_tag", diags.Errors[0].Code)
}

func TestBuildRejectsPatternWithoutLayout(t *testing.T) {
	type missingPattern struct {
		At time.Time `mapconvtime:"strategy=pattern"`
	}

	diags := &diagnostic.Diagnostics{}

	d := Build(Declaration{Type: reflect.TypeOf(missingPattern{})}, nil, diags)
	assert.Nil(t, d)
	assert.True(t, diags.HasErrors())
}

func TestBuildArtifactOverride(t *testing.T) {
	diags := &diagnostic.Diagnostics{}

	d := Build(Declaration{Type: reflect.TypeOf(department{}), Artifact: "DeptConverter"}, nil, diags)
	require.NotNil(t, d)
	assert.Equal(t, "DeptConverter", d.Artifact)
}

func TestRegistryReplaceAndRemove(t *testing.T) {
	reg := NewRegistry()

	reg.Add(&EntityDescriptor{QualifiedName: "a"})
	reg.Add(&EntityDescriptor{QualifiedName: "b"})
	reg.Add(&EntityDescriptor{QualifiedName: "a", Artifact: "second"})

	assert.Equal(t, []string{"a", "b"}, reg.Names())
	assert.Equal(t, "second", reg.Get("a").Artifact)

	reg.Remove("a")
	assert.Equal(t, []string{"b"}, reg.Names())
	assert.False(t, reg.Known("a"))
	assert.Equal(t, 1, reg.Len())
}
