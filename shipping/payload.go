package shipping

import (
	"strings"

	"github.com/goliatone/go-payhooks/core"
)

type Address struct {
	Name    string `json:"name"`
	Street1 string `json:"street1"`
	City    string `json:"city"`
	State   string `json:"province"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

type Parcel struct {
	Length       string `json:"length"`
	Width        string `json:"width"`
	Height       string `json:"height"`
	DistanceUnit string `json:"distance_unit"`
	Weight       string `json:"weight"`
	MassUnit     string `json:"mass_unit"`
}

type Payload struct {
	Reference   string   `json:"reference"`
	AddressFrom Address  `json:"address_from"`
	AddressTo   Address  `json:"address_to"`
	Parcels     []Parcel `json:"parcels"`
}

type response struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// BuildPayload assembles the carrier request. Each destination field is taken
// from the user, else the order snapshot, else the configured default.
func BuildPayload(order core.Order, user *core.User, cfg core.ShipmentConfig) Payload {
	snapshot := order.Snapshot()
	var profile core.Address
	if user != nil {
		profile = user.Address()
	}
	defaults := cfg.Defaults

	return Payload{
		Reference:   order.ID,
		AddressFrom: addressFromConfig(cfg.Origin),
		AddressTo: Address{
			Name:    firstNonEmpty(profile.Name, snapshot.Name, defaults.Name),
			Street1: firstNonEmpty(profile.Street, snapshot.Street, defaults.Street),
			City:    firstNonEmpty(profile.City, snapshot.City, defaults.City),
			State:   strings.TrimSpace(defaults.State),
			Zip:     firstNonEmpty(profile.Zip, snapshot.Zip, defaults.Zip),
			Country: strings.TrimSpace(defaults.Country),
			Phone:   firstNonEmpty(profile.Phone, snapshot.Phone, defaults.Phone),
			Email:   firstNonEmpty(profile.Email, snapshot.Email, defaults.Email),
		},
		Parcels: []Parcel{{
			Length:       cfg.Parcel.Length,
			Width:        cfg.Parcel.Width,
			Height:       cfg.Parcel.Height,
			DistanceUnit: cfg.Parcel.DistanceUnit,
			Weight:       cfg.Parcel.Weight,
			MassUnit:     cfg.Parcel.MassUnit,
		}},
	}
}

func addressFromConfig(cfg core.AddressConfig) Address {
	return Address{
		Name:    strings.TrimSpace(cfg.Name),
		Street1: strings.TrimSpace(cfg.Street),
		City:    strings.TrimSpace(cfg.City),
		State:   strings.TrimSpace(cfg.State),
		Zip:     strings.TrimSpace(cfg.Zip),
		Country: strings.TrimSpace(cfg.Country),
		Phone:   strings.TrimSpace(cfg.Phone),
		Email:   strings.TrimSpace(cfg.Email),
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
