package product

import (
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestNewFromCreateRequestDefaultsDurability(t *testing.T) {
	p := NewFromCreateRequest(CreateProductRequest{
		Code:              "BK-01",
		Name:              "City bike",
		ProductType:       "bike",
		Availability:      ptr(true),
		NeedingRepair:     ptr(false),
		MaxDurability:     ptr(100),
		Price:             ptr(15),
		MinimumRentPeriod: ptr(2),
	})

	if p.Durability != 0 {
		t.Fatalf("durability: got %d want 0", p.Durability)
	}
	if p.Mileage != nil {
		t.Fatalf("mileage should stay nil")
	}
	if !p.Availability || p.NeedingRepair || p.MaxDurability != 100 || p.Price != 15 || p.MinimumRentPeriod != 2 {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestApplyUpdateKeepsIdentityAndAudit(t *testing.T) {
	actor := int64(7)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p := Product{ID: 9, Code: "A", Mileage: ptr(40), CreatedBy: &actor, CreatedAt: created}

	got := p.ApplyUpdate(UpdateProductRequest{
		Code:              "B",
		Name:              "n",
		ProductType:       "t",
		Availability:      ptr(false),
		NeedingRepair:     ptr(true),
		MaxDurability:     ptr(1),
		Price:             ptr(1),
		MinimumRentPeriod: ptr(1),
	})

	if got.ID != 9 || got.CreatedBy == nil || *got.CreatedBy != 7 || !got.CreatedAt.Equal(created) {
		t.Fatalf("identity/audit lost: %+v", got)
	}
	if got.Code != "B" || got.Mileage != nil {
		t.Fatalf("full update should replace fields: %+v", got)
	}
}

func TestApplyPatchOnlyTouchesProvidedFields(t *testing.T) {
	p := Product{ID: 1, Code: "A", Name: "keep", Price: 10, Durability: 3}

	got := p.ApplyPatch(PatchProductRequest{Price: ptr(0), Code: ptr("Z")})

	if got.Price != 0 || got.Code != "Z" {
		t.Fatalf("patched fields not applied: %+v", got)
	}
	if got.Name != "keep" || got.Durability != 3 {
		t.Fatalf("untouched fields changed: %+v", got)
	}
}
