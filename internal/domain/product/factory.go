package product

// NewFromCreateRequest builds the writable part of a product. Identity and
// audit fields are assigned by the store.
func NewFromCreateRequest(req CreateProductRequest) Product {
	p := Product{
		Code:              req.Code,
		Name:              req.Name,
		ProductType:       req.ProductType,
		Availability:      deref(req.Availability),
		NeedingRepair:     deref(req.NeedingRepair),
		MaxDurability:     deref(req.MaxDurability),
		Mileage:           req.Mileage,
		Price:             deref(req.Price),
		MinimumRentPeriod: deref(req.MinimumRentPeriod),
	}

	if req.Durability != nil {
		p.Durability = *req.Durability
	}

	return p
}

// ApplyUpdate replaces every writable field; an omitted mileage clears it.
func (p Product) ApplyUpdate(req UpdateProductRequest) Product {
	next := NewFromCreateRequest(CreateProductRequest(req))

	next.ID = p.ID
	next.CreatedBy = p.CreatedBy
	next.CreatedAt = p.CreatedAt
	next.UpdatedBy = p.UpdatedBy
	next.UpdatedAt = p.UpdatedAt

	return next
}

func (p Product) ApplyPatch(req PatchProductRequest) Product {
	if req.Code != nil {
		p.Code = *req.Code
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.ProductType != nil {
		p.ProductType = *req.ProductType
	}
	if req.Availability != nil {
		p.Availability = *req.Availability
	}
	if req.NeedingRepair != nil {
		p.NeedingRepair = *req.NeedingRepair
	}
	if req.Durability != nil {
		p.Durability = *req.Durability
	}
	if req.MaxDurability != nil {
		p.MaxDurability = *req.MaxDurability
	}
	if req.Mileage != nil {
		p.Mileage = req.Mileage
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.MinimumRentPeriod != nil {
		p.MinimumRentPeriod = *req.MinimumRentPeriod
	}
	return p
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}
