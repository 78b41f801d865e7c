package product

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("product not found")

type Product struct {
	ID                int64     `json:"id"`
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	ProductType       string    `json:"product_type"`
	Availability      bool      `json:"availability"`
	NeedingRepair     bool      `json:"needing_repair"`
	Durability        int       `json:"durability"`
	MaxDurability     int       `json:"max_durability"`
	Mileage           *int      `json:"mileage"`
	Price             int       `json:"price"`
	MinimumRentPeriod int       `json:"minimum_rent_period"`
	CreatedBy         *int64    `json:"created_by"`
	UpdatedBy         *int64    `json:"updated_by"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Search        *string
	ProductType   *string
	Availability  *bool
	NeedingRepair *bool
	Limit         int
	Offset        int
}

// Booleans and required numbers are pointers so that "missing" and the zero
// value can be told apart by the required rule.
type CreateProductRequest struct {
	Code              string `json:"code" binding:"required,max=30"`
	Name              string `json:"name" binding:"required,max=50"`
	ProductType       string `json:"product_type" binding:"required,max=50"`
	Availability      *bool  `json:"availability" binding:"required"`
	NeedingRepair     *bool  `json:"needing_repair" binding:"required"`
	Durability        *int   `json:"durability" binding:"omitnil,min=0,max=2147483647"`
	MaxDurability     *int   `json:"max_durability" binding:"required,min=0,max=2147483647"`
	Mileage           *int   `json:"mileage" binding:"omitnil,min=0,max=2147483647"`
	Price             *int   `json:"price" binding:"required,min=0,max=2147483647"`
	MinimumRentPeriod *int   `json:"minimum_rent_period" binding:"required,min=0,max=32767"`
}

// a full update payload carries the same constraints as a create.
type UpdateProductRequest CreateProductRequest

type PatchProductRequest struct {
	Code              *string `json:"code" binding:"omitnil,min=1,max=30"`
	Name              *string `json:"name" binding:"omitnil,min=1,max=50"`
	ProductType       *string `json:"product_type" binding:"omitnil,min=1,max=50"`
	Availability      *bool   `json:"availability"`
	NeedingRepair     *bool   `json:"needing_repair"`
	Durability        *int    `json:"durability" binding:"omitnil,min=0,max=2147483647"`
	MaxDurability     *int    `json:"max_durability" binding:"omitnil,min=0,max=2147483647"`
	Mileage           *int    `json:"mileage" binding:"omitnil,min=0,max=2147483647"`
	Price             *int    `json:"price" binding:"omitnil,min=0,max=2147483647"`
	MinimumRentPeriod *int    `json:"minimum_rent_period" binding:"omitnil,min=0,max=32767"`
}
