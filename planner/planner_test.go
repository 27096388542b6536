package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dragginzgame/icydb-core/predicate"
	"github.com/dragginzgame/icydb-core/schema"
	"github.com/dragginzgame/icydb-core/value"
)

var userEntity = schema.EntityDescriptor{
	Name: "user",
	PK:   schema.FieldDescriptor{Name: "id", Family: value.FamilyUint},
	Fields: []schema.FieldDescriptor{
		{Name: "email", Family: value.FamilyText},
		{Name: "age", Family: value.FamilyInt},
	},
	Indexes: []schema.IndexDescriptor{
		{ID: "by_email", Components: []schema.FieldDescriptor{{Name: "email", Family: value.FamilyText}}, Unique: true},
		{ID: "by_age", Components: []schema.FieldDescriptor{{Name: "age", Family: value.FamilyInt}}},
	},
}

func TestBuildRejectsLimitWithoutOrder(t *testing.T) {
	r := require.New(t)
	limit := uint64(10)
	_, err := Build(userEntity, predicate.True{}, nil, Window{Limit: &limit})
	r.Error(err)
}

func TestBuildSelectsPkPointForPkEquality(t *testing.T) {
	r := require.New(t)
	p, err := Build(userEntity, predicate.Compare{Field: "id", Op: predicate.OpEq, Value: value.NewUint(1), Coercion: predicate.Coercion{Kind: predicate.Strict}}, nil, Window{})
	r.NoError(err)
	r.Equal(AccessPkPoint, p.AccessPath.Kind())
	r.Equal(predicate.True{}, p.Residual)
}

func TestBuildSelectsSecondaryIndexForUniqueEquality(t *testing.T) {
	r := require.New(t)
	p, err := Build(userEntity, predicate.Compare{Field: "email", Op: predicate.OpEq, Value: value.NewText("a@x.com"), Coercion: predicate.Coercion{Kind: predicate.Strict}}, nil, Window{})
	r.NoError(err)
	r.Equal(AccessSecondaryIndex, p.AccessPath.Kind())
	r.Equal("by_email", p.IndexID)
}

func TestBuildSelectsIndexRangeForOrderingComparison(t *testing.T) {
	r := require.New(t)
	p, err := Build(userEntity, predicate.Compare{Field: "age", Op: predicate.OpGt, Value: value.NewInt(18), Coercion: predicate.Coercion{Kind: predicate.NumericWiden}}, nil, Window{})
	r.NoError(err)
	r.Equal(AccessIndexRange, p.AccessPath.Kind())
	r.Equal("by_age", p.IndexID)
}

func TestBuildFallsBackToPkRangeWhenNoIndexMatches(t *testing.T) {
	r := require.New(t)
	p, err := Build(userEntity, predicate.True{}, nil, Window{})
	r.NoError(err)
	r.Equal(AccessPkRange, p.AccessPath.Kind())
}

func TestBuildComputesResidualForUnmatchedConjuncts(t *testing.T) {
	r := require.New(t)
	pred := predicate.And{Children: []predicate.Predicate{
		predicate.Compare{Field: "id", Op: predicate.OpEq, Value: value.NewUint(1), Coercion: predicate.Coercion{Kind: predicate.Strict}},
		predicate.Compare{Field: "age", Op: predicate.OpGt, Value: value.NewInt(18), Coercion: predicate.Coercion{Kind: predicate.NumericWiden}},
	}}
	p, err := Build(userEntity, pred, nil, Window{})
	r.NoError(err)
	r.Equal(AccessPkPoint, p.AccessPath.Kind())
	r.NotEqual(predicate.True{}, p.Residual)
}

func TestBuildUnionForTopLevelOrOfIndexEligibleBranches(t *testing.T) {
	r := require.New(t)
	pred := predicate.Or{Children: []predicate.Predicate{
		predicate.Compare{Field: "email", Op: predicate.OpEq, Value: value.NewText("a@x.com"), Coercion: predicate.Coercion{Kind: predicate.Strict}},
		predicate.Compare{Field: "id", Op: predicate.OpEq, Value: value.NewUint(2), Coercion: predicate.Coercion{Kind: predicate.Strict}},
	}}
	p, err := Build(userEntity, pred, nil, Window{})
	r.NoError(err)
	r.Equal(AccessCompositeUnion, p.AccessPath.Kind())
}

func TestBuildPostSortWhenOrderDoesNotMatchAccess(t *testing.T) {
	r := require.New(t)
	p, err := Build(userEntity, predicate.True{}, []OrderField{{Field: "age"}}, Window{})
	r.NoError(err)
	r.True(p.PostSort)
}

func TestBuildNoPostSortWhenOrderMatchesPk(t *testing.T) {
	r := require.New(t)
	p, err := Build(userEntity, predicate.True{}, []OrderField{{Field: "id"}}, Window{})
	r.NoError(err)
	r.False(p.PostSort)
}

func TestFingerprintStableAcrossEquivalentPredicateOrder(t *testing.T) {
	r := require.New(t)

	predA := predicate.And{Children: []predicate.Predicate{
		predicate.Compare{Field: "age", Op: predicate.OpGt, Value: value.NewInt(1), Coercion: predicate.Coercion{Kind: predicate.NumericWiden}},
		predicate.Compare{Field: "email", Op: predicate.OpEq, Value: value.NewText("z"), Coercion: predicate.Coercion{Kind: predicate.Strict}},
	}}
	predB := predicate.And{Children: []predicate.Predicate{
		predicate.Compare{Field: "email", Op: predicate.OpEq, Value: value.NewText("z"), Coercion: predicate.Coercion{Kind: predicate.Strict}},
		predicate.Compare{Field: "age", Op: predicate.OpGt, Value: value.NewInt(1), Coercion: predicate.Coercion{Kind: predicate.NumericWiden}},
	}}

	pA, err := Build(userEntity, predA, nil, Window{})
	r.NoError(err)
	pB, err := Build(userEntity, predB, nil, Window{})
	r.NoError(err)
	r.Equal(pA.Fingerprint, pB.Fingerprint)
}

func TestFingerprintDiffersForDifferentPlans(t *testing.T) {
	r := require.New(t)
	pA, err := Build(userEntity, predicate.Compare{Field: "id", Op: predicate.OpEq, Value: value.NewUint(1), Coercion: predicate.Coercion{Kind: predicate.Strict}}, nil, Window{})
	r.NoError(err)
	pB, err := Build(userEntity, predicate.Compare{Field: "id", Op: predicate.OpEq, Value: value.NewUint(2), Coercion: predicate.Coercion{Kind: predicate.Strict}}, nil, Window{})
	r.NoError(err)
	r.NotEqual(pA.Fingerprint, pB.Fingerprint)
}
