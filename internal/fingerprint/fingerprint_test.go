package fingerprint

import (
	"testing"

	"compforge/internal/estimator"
)

func TestHashOrderIndependent(t *testing.T) {
	a := estimator.FeatureSet{
		Fields:  []string{"image", "text", "multifield"},
		Styling: []string{"color", "shadow"},
		Layout:  []string{"grid", "flex"},
	}
	b := estimator.FeatureSet{
		Fields:  []string{"multifield", "image", "text"},
		Styling: []string{"shadow", "color"},
		Layout:  []string{"flex", "grid"},
	}
	if Hash(a) != Hash(b) {
		t.Fatalf("hashes differ for equal content: %s vs %s", Hash(a), Hash(b))
	}
}

func TestHashDistinguishesContent(t *testing.T) {
	a := estimator.FeatureSet{Fields: []string{"text"}}
	b := estimator.FeatureSet{Fields: []string{"text"}, Responsive: true}
	if Hash(a) == Hash(b) {
		t.Fatalf("different feature sets must not collide")
	}
}

func TestHashNilAndEmptySlicesEqual(t *testing.T) {
	a := estimator.FeatureSet{}
	b := estimator.FeatureSet{Fields: []string{}, Styling: []string{}, Layout: []string{}}
	if Hash(a) != Hash(b) {
		t.Fatalf("nil and empty slices should canonicalize identically")
	}
}
