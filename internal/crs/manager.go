package crs

import (
	"errors"
	"fmt"

	"github.com/banshee-data/geoflow/internal/geodata"
	"github.com/banshee-data/geoflow/internal/monitoring"
)

// ErrMissingCRS reports a dataset with no reference system where one is
// required.
var ErrMissingCRS = errors.New("dataset has no CRS defined")

// MismatchError reports two datasets whose reference systems differ and no
// explicit target was given. Both systems are named; the manager never
// silently privileges one side.
type MismatchError struct {
	A string
	B string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("CRS mismatch: %s vs %s; supply an explicit target CRS to reconcile", e.A, e.B)
}

// Manager enforces explicit reconciliation of reference systems between
// spatial datasets. It is stateless and safe to share.
type Manager struct{}

// NewManager creates a CRS manager.
func NewManager() *Manager {
	return &Manager{}
}

// EnsureCommonCRS returns both datasets expressed in one common reference
// system.
//
// It fails with ErrMissingCRS if either dataset lacks a reference system.
// Identical systems are returned unchanged (no reprojection drift). Differing
// systems with an empty targetCRS fail with a MismatchError naming both;
// with a targetCRS, whichever inputs are not already in the target are
// reprojected.
func (m *Manager) EnsureCommonCRS(a, b *geodata.Dataset, targetCRS string) (*geodata.Dataset, *geodata.Dataset, error) {
	if a.CRS == "" {
		return nil, nil, fmt.Errorf("first dataset: %w", ErrMissingCRS)
	}
	if b.CRS == "" {
		return nil, nil, fmt.Errorf("second dataset: %w", ErrMissingCRS)
	}

	aCode := Normalize(a.CRS)
	bCode := Normalize(b.CRS)

	if targetCRS == "" {
		if aCode == bCode {
			return a, b, nil
		}
		return nil, nil, &MismatchError{A: aCode, B: bCode}
	}

	target := Normalize(targetCRS)
	outA, err := Reproject(a, target)
	if err != nil {
		return nil, nil, err
	}
	outB, err := Reproject(b, target)
	if err != nil {
		return nil, nil, err
	}
	return outA, outB, nil
}

// IsGeographic reports whether the reference system measures position in
// angular units (degrees) rather than projected linear units. Unknown codes
// report false.
func (m *Manager) IsGeographic(code string) bool {
	info, err := Lookup(code)
	if err != nil {
		return false
	}
	return info.Geographic
}

// WarnIfGeographic emits a non-fatal advisory naming the operation when the
// dataset's reference system is geographic. Distance- and area-sensitive
// operations on angular coordinates produce meaningless results.
func (m *Manager) WarnIfGeographic(ds *geodata.Dataset, operation string) {
	if ds.CRS == "" || !m.IsGeographic(ds.CRS) {
		return
	}
	monitoring.Advisory(operation,
		"dataset is in geographic CRS %s; distances and areas will be in degrees, reproject to a projected CRS first",
		Normalize(ds.CRS))
}
