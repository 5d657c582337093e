package keyword

import "testing"

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical empty", "", "", 0},
		{"identical label", "Human", "Human", 0},
		{"empty a", "", "Dog", 3},
		{"empty b", "Dog", "", 3},
		{"substitution", "cat", "bat", 1},
		{"insertion", "Humn", "Human", 1},
		{"deletion", "Humaan", "Human", 1},
		{"kitten to sitting", "kitten", "sitting", 3},
		{"case counts", "human", "Human", 1},
		{"unicode", "Pieris napí", "Pieris napi", 1},
		{"transposition is two edits", "Hmuan", "Human", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LevenshteinDistance(tt.a, tt.b); got != tt.want {
				t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := LevenshteinDistance(tt.b, tt.a); got != tt.want {
				t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d (symmetry)", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestDamerauLevenshteinDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "Dog", "Dog", 0},
		{"empty a", "", "Cat", 3},
		{"substitution", "cat", "bat", 1},
		{"transposition", "Hmuan", "Human", 1},
		{"transposition at end", "Dgo", "Dog", 1},
		{"kitten to sitting", "kitten", "sitting", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DamerauLevenshteinDistance(tt.a, tt.b); got != tt.want {
				t.Errorf("DamerauLevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := DamerauLevenshteinDistance(tt.b, tt.a); got != tt.want {
				t.Errorf("DamerauLevenshteinDistance(%q, %q) = %d, want %d (symmetry)", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func BenchmarkLevenshteinDistance(b *testing.B) {
	for i := 0; i < b.N; i++ {
		LevenshteinDistance("Danaus plexippus", "Danaus plexipus")
	}
}

func BenchmarkDamerauLevenshteinDistance(b *testing.B) {
	for i := 0; i < b.N; i++ {
		DamerauLevenshteinDistance("Danaus plexippus", "Danuas plexippus")
	}
}
