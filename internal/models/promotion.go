package models

import "time"

type DiscountKind int

const (
	DiscountPercentage  DiscountKind = 1
	DiscountFixedAmount DiscountKind = 2
)

func (k DiscountKind) Valid() bool {
	return k == DiscountPercentage || k == DiscountFixedAmount
}

func (k DiscountKind) String() string {
	switch k {
	case DiscountPercentage:
		return "percentage"
	case DiscountFixedAmount:
		return "fixed_amount"
	}
	return "unknown"
}

// ChannelID classifies which checkout flow a promotion is valid for.
type ChannelID int

const (
	ChannelTrip        ChannelID = 1
	ChannelFoodService ChannelID = 2
)

func (c ChannelID) Valid() bool {
	return c == ChannelTrip || c == ChannelFoodService
}

type Status int

const (
	StatusActive    Status = 1
	StatusFull      Status = 2
	StatusExpired   Status = 3
	StatusCancelled Status = 4
)

func (s Status) Valid() bool {
	return s >= StatusActive && s <= StatusCancelled
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusFull:
		return "full"
	case StatusExpired:
		return "expired"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

type Promotion struct {
	ID                 int64        `json:"id"`
	Name               string       `json:"name"`
	Details            string       `json:"details"`
	Code               string       `json:"code"`
	StartDate          time.Time    `json:"start_date"`
	EndDate            time.Time    `json:"end_date"`
	DiscountKind       DiscountKind `json:"discount_id"`
	DiscountValue      float64      `json:"discount"`
	DiscountCap        *float64     `json:"limit_discount,omitempty"` // percentage only
	MinimumOrderAmount float64      `json:"minimum_price"`
	Limit              int          `json:"limit"`
	CountLimit         int          `json:"count_limit"`
	TypeID             ChannelID    `json:"type_id"`
	StatusID           Status       `json:"status_id"`
}

// Lookup is a reference row served to the admin screens.
type Lookup struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

var (
	DiscountTypes = []Lookup{
		{ID: int(DiscountPercentage), Name: "Percentage"},
		{ID: int(DiscountFixedAmount), Name: "Fixed amount"},
	}
	PromotionTypes = []Lookup{
		{ID: int(ChannelTrip), Name: "Trip"},
		{ID: int(ChannelFoodService), Name: "Food service"},
	}
	PromotionStatuses = []Lookup{
		{ID: int(StatusActive), Name: "Active"},
		{ID: int(StatusFull), Name: "Full"},
		{ID: int(StatusExpired), Name: "Expired"},
		{ID: int(StatusCancelled), Name: "Cancelled"},
	}
)
