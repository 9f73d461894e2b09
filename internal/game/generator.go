package game

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"time"

	"github.com/iliyamo/pizza-rush/internal/model"
)

const (
	minHousehold = 1
	maxHousehold = 6

	// tipRate is the base tip before the generosity variance is applied.
	tipRate = 0.10

	// vipChance is the probability that a generated order is VIP;
	// VIP orders carry a tripled tip.
	vipChance = 0.15
)

// Generator synthesizes complete order records ready for persistence.
// One Generate call produces at most one order; any failure other than
// geocoding aborts without partial writes.
type Generator struct {
	Addresses AddressStore
	Orders    OrderStore
	Geo       Geocoder
	Items     ItemSource
	State     string // state appended to geocoding queries, e.g. "NJ"
}

// NewGenerator wires a Generator from its collaborators.
func NewGenerator(addresses AddressStore, orders OrderStore, geo Geocoder, items ItemSource, state string) *Generator {
	return &Generator{Addresses: addresses, Orders: orders, Geo: geo, Items: items, State: state}
}

// Generate builds and persists one queued, unclaimed order:
// random address, best-effort geocode, generated item list sized for a
// random household, and a randomized cost estimate.  The returned
// order carries the id assigned by the store.
func (g *Generator) Generate(ctx context.Context) (model.Order, error) {
	addr, err := g.Addresses.Random(ctx)
	if err != nil {
		return model.Order{}, err
	}

	// Geocoding is best effort: unresolved orders keep (0,0).
	lat, lon, err := g.Geo.Resolve(ctx, addr.Line(), addr.Town, g.State)
	if err != nil {
		log.Printf("generator: geocode %q failed: %v", addr.Line(), err)
		lat, lon = 0, 0
	}

	size := minHousehold + rand.IntN(maxHousehold-minHousehold+1)

	items, err := g.Items.ItemList(ctx, size)
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(items) == 0 {
		return model.Order{}, fmt.Errorf("%w: empty item list", ErrGenerationFailed)
	}

	totalCents, tipCents := estimateCost(size)
	isVIP := rand.Float64() < vipChance
	if isVIP {
		tipCents *= 3
	}

	order := model.Order{
		Status:     model.OrderQueued,
		DatePlaced: time.Now().UTC(),
		AddressID:  addr.ID,
		Items:      items,
		TotalCents: totalCents,
		TipCents:   tipCents,
		Lat:        lat,
		Lon:        lon,
		IsVIP:      isVIP,
	}
	id, err := g.Orders.Create(ctx, &order)
	if err != nil {
		return model.Order{}, err
	}
	order.ID = id
	return order, nil
}

// estimateCost prices an order from the household size alone.  The
// model is intentionally decoupled from the generated item list:
// cost per person Uniform(5,15) dollars, total scaled by a
// Uniform(0.8,1.2) variance, tip 10% of total scaled by a
// Uniform(0.8,1.2) generosity factor.  Amounts are rounded to cents.
func estimateCost(householdSize int) (totalCents, tipCents int64) {
	costPerPerson := 5 + rand.Float64()*10
	variance := 0.8 + rand.Float64()*0.4
	total := costPerPerson * float64(householdSize) * variance

	generosity := 0.8 + rand.Float64()*0.4
	tip := total * tipRate * generosity

	return int64(math.Round(total * 100)), int64(math.Round(tip * 100))
}
