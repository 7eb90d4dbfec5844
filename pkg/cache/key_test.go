package cache

import (
	"fmt"
	"strings"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "operation only",
			key:  Key{Operation: "Teams.GetTeams"},
			want: "Teams.GetTeams|args=[]|kwargs=[]",
		},
		{
			name: "positional args in call order",
			key:  NewKey("Plays.GetPlays", 1234, "home"),
			want: `Plays.GetPlays|args=[1234,"home"]|kwargs=[]`,
		},
		{
			name: "kwargs sorted by name",
			key: Key{
				Operation: "Games.GetGames",
				Kwargs: map[string]any{
					"team":   "Duke",
					"season": 2024,
				},
			},
			want: `Games.GetGames|args=[]|kwargs=[season=2024,team="Duke"]`,
		},
		{
			name: "int and string render differently",
			key:  NewKey("Games.GetGame", "1"),
			want: `Games.GetGame|args=["1"]|kwargs=[]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("Key.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestKey_KwargOrderIndependent ensures keyword insertion order never changes the key.
func TestKey_KwargOrderIndependent(t *testing.T) {
	k1 := map[string]any{}
	k1["a"] = 1
	k1["b"] = 2
	k1["season"] = 2024

	k2 := map[string]any{}
	k2["season"] = 2024
	k2["b"] = 2
	k2["a"] = 1

	key1 := Key{Operation: "f", Kwargs: k1}
	key2 := Key{Operation: "f", Kwargs: k2}

	if key1.Digest() != key2.Digest() {
		t.Errorf("Digest() differs for same kwargs: %s vs %s", key1.Digest(), key2.Digest())
	}

	// With() composes the same way regardless of call order
	a := NewKey("f").With(map[string]any{"a": 1}).With(map[string]any{"b": 2})
	b := NewKey("f").With(map[string]any{"b": 2}).With(map[string]any{"a": 1})
	if a.Digest() != b.Digest() {
		t.Errorf("With() order changed digest: %s vs %s", a.Digest(), b.Digest())
	}
}

func TestKey_Distinct(t *testing.T) {
	seen := make(map[string]string, 10000)

	for i := 0; i < 10000; i++ {
		key := NewKey("Games.GetGames").With(map[string]any{
			"season": 2000 + i%25,
			"team":   fmt.Sprintf("team-%d", i/25),
		})
		digest := key.Digest()
		if prev, ok := seen[digest]; ok {
			t.Fatalf("collision between %q and %q", prev, key.String())
		}
		seen[digest] = key.String()
	}
}

func TestKey_DistinctAcrossArgumentKinds(t *testing.T) {
	keys := []Key{
		NewKey("Games.GetGame", 1),
		NewKey("Games.GetGame", "1"),
		NewKey("Games.GetGame", 1.5),
		NewKey("Games.GetGame"),
		NewKey("Games.GetGame").With(map[string]any{"id": 1}),
		NewKey("Games.GetMedia", 1),
	}

	seen := make(map[string]int)
	for i, k := range keys {
		if j, ok := seen[k.Digest()]; ok {
			t.Errorf("keys %d and %d collide: %s", j, i, k.String())
		}
		seen[k.Digest()] = i
	}
}

type gameQuery struct {
	Season *int
	Team   string
	Weeks  []int
}

func intPtr(n int) *int { return &n }

func TestKey_PointersRenderByValue(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Key
		wantEqual bool
	}{
		{
			name:      "pointers to equal ints",
			a:         NewKey("Games.List", intPtr(2024)),
			b:         NewKey("Games.List", intPtr(2024)),
			wantEqual: true,
		},
		{
			name:      "pointers to different ints",
			a:         NewKey("Games.List", intPtr(2024)),
			b:         NewKey("Games.List", intPtr(2025)),
			wantEqual: false,
		},
		{
			name:      "structs holding pointers to equal values",
			a:         NewKey("Games.List", gameQuery{Season: intPtr(2024), Team: "Duke", Weeks: []int{1, 2}}),
			b:         NewKey("Games.List", gameQuery{Season: intPtr(2024), Team: "Duke", Weeks: []int{1, 2}}),
			wantEqual: true,
		},
		{
			name:      "pointers to equal structs",
			a:         NewKey("Games.List", &gameQuery{Season: intPtr(2024)}),
			b:         NewKey("Games.List", &gameQuery{Season: intPtr(2024)}),
			wantEqual: true,
		},
		{
			name:      "kwargs holding pointers to equal values",
			a:         NewKey("Games.List").With(map[string]any{"season": intPtr(2024)}),
			b:         NewKey("Games.List").With(map[string]any{"season": intPtr(2024)}),
			wantEqual: true,
		},
		{
			name:      "nil pointer and pointer to zero",
			a:         NewKey("Games.List", gameQuery{}),
			b:         NewKey("Games.List", gameQuery{Season: intPtr(0)}),
			wantEqual: false,
		},
		{
			name:      "pointer and plain value",
			a:         NewKey("Games.List", intPtr(2024)),
			b:         NewKey("Games.List", 2024),
			wantEqual: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			equal := tt.a.Digest() == tt.b.Digest()
			if equal != tt.wantEqual {
				t.Errorf("digests equal = %v, want %v\n  a: %s\n  b: %s", equal, tt.wantEqual, tt.a.String(), tt.b.String())
			}
		})
	}
}

func TestKey_String_Pointer(t *testing.T) {
	got := NewKey("Games.List", intPtr(2024), map[string]int{"b": 2, "a": 1}).String()
	want := `Games.List|args=[&2024,map{"a":1,"b":2}]|kwargs=[]`
	if got != want {
		t.Errorf("Key.String() = %v, want %v", got, want)
	}
}

func TestKey_With_SkipsNil(t *testing.T) {
	withNil := NewKey("Teams.GetTeams").With(map[string]any{"conference": nil, "season": 2024})
	without := NewKey("Teams.GetTeams").With(map[string]any{"season": 2024})

	if withNil.Digest() != without.Digest() {
		t.Errorf("nil kwarg changed the key: %s vs %s", withNil.String(), without.String())
	}
}

func TestKey_Digest_Format(t *testing.T) {
	digest := NewKey("Teams.GetTeams").Digest()

	if !strings.HasPrefix(digest, KeyPrefix) {
		t.Errorf("Digest() = %s, want prefix %s", digest, KeyPrefix)
	}
	if len(digest) != len(KeyPrefix)+64 {
		t.Errorf("Digest() length = %d, want %d", len(digest), len(KeyPrefix)+64)
	}
}

// TestKey_Determinism ensures same input always produces same key
func TestKey_Determinism(t *testing.T) {
	key := Key{
		Operation: "Stats.GetPlayerSeasonStats",
		Args:      []any{2024},
		Kwargs: map[string]any{
			"team":        "Duke",
			"conference":  "ACC",
			"season_type": "regular",
			"filters":     map[string]any{"z": 1, "a": 2},
		},
	}

	first := key.Digest()
	for i := 0; i < 10; i++ {
		if got := key.Digest(); got != first {
			t.Errorf("result[%d] = %v, want %v (not deterministic)", i, got, first)
		}
	}
}
