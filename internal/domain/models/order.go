package models

import "time"

// Order is a cargo shipment request placed on the map.
type Order struct {
	ID          string    `bson:"_id" json:"_id"`
	From        string    `bson:"from" json:"from"`
	To          string    `bson:"to" json:"to"`
	Cargo       string    `bson:"cargo" json:"cargo"`
	PricePerTon float64   `bson:"pricePerTon" json:"pricePerTon"`
	DistanceKm  float64   `bson:"distanceKm" json:"distanceKm"`
	Lat         float64   `bson:"lat" json:"lat"`
	Lon         float64   `bson:"lon" json:"lon"`
	ToLat       float64   `bson:"toLat" json:"toLat"`
	ToLon       float64   `bson:"toLon" json:"toLon"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Route renders "from → to" for messages.
func (o Order) Route() string {
	return o.From + " → " + o.To
}

// OrderPatch carries the fields of an order update; nil means unchanged.
type OrderPatch struct {
	From        *string  `json:"from"`
	To          *string  `json:"to"`
	Cargo       *string  `json:"cargo"`
	PricePerTon *float64 `json:"pricePerTon"`
	DistanceKm  *float64 `json:"distanceKm"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	ToLat       *float64 `json:"toLat"`
	ToLon       *float64 `json:"toLon"`
}

// IsEmpty reports whether the patch changes nothing.
func (p OrderPatch) IsEmpty() bool {
	return p.From == nil && p.To == nil && p.Cargo == nil && p.PricePerTon == nil &&
		!p.TouchesGeometry()
}

// TouchesGeometry reports whether the patch sets any route geometry field.
func (p OrderPatch) TouchesGeometry() bool {
	return p.DistanceKm != nil || p.Lat != nil || p.Lon != nil || p.ToLat != nil || p.ToLon != nil
}

// ChangesGeometry reports whether applying the patch to o moves a point or
// alters the distance. Resending the current values is not a change.
func (p OrderPatch) ChangesGeometry(o Order) bool {
	differs := func(v *float64, cur float64) bool { return v != nil && *v != cur }
	return differs(p.DistanceKm, o.DistanceKm) || differs(p.Lat, o.Lat) || differs(p.Lon, o.Lon) ||
		differs(p.ToLat, o.ToLat) || differs(p.ToLon, o.ToLon)
}

// Apply returns o with the patch applied.
func (p OrderPatch) Apply(o Order) Order {
	if p.From != nil {
		o.From = *p.From
	}
	if p.To != nil {
		o.To = *p.To
	}
	if p.Cargo != nil {
		o.Cargo = *p.Cargo
	}
	if p.PricePerTon != nil {
		o.PricePerTon = *p.PricePerTon
	}
	if p.DistanceKm != nil {
		o.DistanceKm = *p.DistanceKm
	}
	if p.Lat != nil {
		o.Lat = *p.Lat
	}
	if p.Lon != nil {
		o.Lon = *p.Lon
	}
	if p.ToLat != nil {
		o.ToLat = *p.ToLat
	}
	if p.ToLon != nil {
		o.ToLon = *p.ToLon
	}
	return o
}
