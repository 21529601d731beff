package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	firstNames = []string{
		"Ana", "Bruno", "Caio", "Duda", "Elisa", "Felipe", "Gabriela", "Heitor",
		"Isabela", "João", "Karina", "Lucas", "Marina", "Nicolas", "Olivia", "Pedro",
		"Queila", "Rafael", "Sofia", "Thiago",
	}
	lastNames = []string{
		"Silva", "Santos", "Oliveira", "Souza", "Lima", "Pereira", "Costa", "Rodrigues",
		"Almeida", "Nascimento", "Araújo", "Ribeiro", "Carvalho", "Gomes", "Martins", "Rocha",
	}
)

// Amounts are drawn in cents from [0, maxAmountCents).
const maxAmountCents = 500_00

type identity struct {
	first, last, handle string
}

// clientIdentity returns the canonical spelling of client i. Indices map to
// distinct identities; the handle disambiguates once name pairs run out.
func clientIdentity(i int) identity {
	pairs := len(firstNames) * len(lastNames)
	id := identity{
		first: firstNames[i%len(firstNames)],
		last:  lastNames[(i/len(firstNames))%len(lastNames)],
	}
	if round := i / pairs; round > 0 {
		id.handle = fmt.Sprintf("@%s%d", strings.ToLower(id.first), round)
	}
	return id
}

// variant respells s the way people type names into a form: with another
// case or stray spaces. All variants group to the same client.
func variant(rng *rand.Rand, s string) string {
	if s == "" {
		return s
	}
	switch rng.Intn(5) {
	case 0:
		return strings.ToUpper(s)
	case 1:
		return strings.ToLower(s)
	case 2:
		return "  " + s + " "
	case 3:
		r := []rune(strings.ToLower(s))
		for j := 0; j < len(r); j += 2 {
			r[j] = []rune(strings.ToUpper(string(r[j])))[0]
		}
		return string(r)
	default:
		return s
	}
}

// Generate builds cfg.Sales submissions spread over cfg.Clients clients.
// Equal seeds give equal output except for idempotency keys.
func Generate(cfg *Config) []Sale {
	clients := cfg.Clients
	if clients <= 0 {
		clients = DefaultClients
	}
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible test data
	out := make([]Sale, cfg.Sales)
	for i := range out {
		id := clientIdentity(rng.Intn(clients))
		out[i] = Sale{
			Key: uuid.NewString(),
			Input: model.SaleInput{
				FirstName: variant(rng, id.first),
				LastName:  variant(rng, id.last),
				Handle:    variant(rng, id.handle),
				Amount:    decimal.New(rng.Int63n(maxAmountCents), -2),
			},
		}
	}
	return out
}

// records converts the sales the server accepted into records the local
// engine can rank.
func records(sales []Sale) []model.SaleRecord {
	out := make([]model.SaleRecord, 0, len(sales))
	for _, s := range sales {
		var rec model.SaleRecord
		s.Input.Apply(&rec, time.Time{})
		out = append(out, rec)
	}
	return out
}
