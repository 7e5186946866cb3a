package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetCreatesDefaults(t *testing.T) {
	s := NewStore()
	p := s.Get()

	assert.Equal(t, Default(), p)
	assert.NotEmpty(t, p.Goals)
	assert.NotEmpty(t, p.Conditions)
	assert.NotEmpty(t, p.Routines)
	assert.NotEmpty(t, p.Preferences)
	assert.NotEmpty(t, p.Restrictions)
}

func TestStoreSetReplacesWholesale(t *testing.T) {
	s := NewStore()
	_ = s.Get()

	next := HealthProfile{
		Goals:       "Gain muscle",
		Preferences: []string{"Keto"},
	}
	s.Set(next)

	got := s.Get()
	require.Equal(t, next, got)
	assert.Empty(t, got.Conditions, "old conditions must not be merged in")
	assert.Nil(t, got.Restrictions, "old restrictions must not be merged in")
}

func TestStoreAcceptsEmptyProfile(t *testing.T) {
	s := NewStore()
	s.Set(HealthProfile{})

	assert.True(t, s.Get().IsEmpty())
}

func TestStoreReturnsCopies(t *testing.T) {
	s := NewStore()
	s.Set(HealthProfile{Preferences: []string{"Vegan"}})

	p := s.Get()
	p.Preferences[0] = "Carnivore"

	assert.Equal(t, []string{"Vegan"}, s.Get().Preferences)
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name    string
		profile HealthProfile
		want    bool
	}{
		{"zero value", HealthProfile{}, true},
		{"blank strings and lists", HealthProfile{Goals: "  ", Preferences: []string{"", " "}}, true},
		{"goals only", HealthProfile{Goals: "Run a marathon"}, false},
		{"restriction only", HealthProfile{Restrictions: []string{"No gluten"}}, false},
		{"defaults", Default(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.IsEmpty())
		})
	}
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"Vegan", "Low sugar"}, ParseList(" Vegan \n\n Low sugar\n"))
	assert.Equal(t, []string{}, ParseList(""))
}
