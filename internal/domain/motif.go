package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FeeKind selects how a motif rule derives the fee from the amount.
type FeeKind string

const (
	FeePercent FeeKind = "percent" // FeeBps of the amount, clamped to MinFee/MaxFee
	FeeFlat    FeeKind = "flat"    // FeeValue as-is
)

// Canonical motifs. The motif is the business reason code that drives
// which fee rule applies.
const (
	MotifTransfert       = "transfert"
	MotifTransfertRecu   = "transfert_recu"
	MotifCommande        = "commande"
	MotifCommandeFacture = "commande_facture"
	MotifPaiementColis   = "paiement_colis"
	MotifApprovision     = "approvisionnement"
	MotifAjustement      = "ajustement"
)

// MotifRule is the fee configuration for one motif. Percentage values are
// stored in basis points (500 = 5%). CostBps is the motif's operating cost
// (partner commission) used to derive profit; profit may be negative.
type MotifRule struct {
	Motif     string           `json:"motif"`
	FeeKind   FeeKind          `json:"fee_kind"`
	FeeBps    int64            `json:"fee_bps"`   // percent rules
	FeeValue  decimal.Decimal  `json:"fee_value"` // flat rules
	MinFee    *decimal.Decimal `json:"min_fee,omitempty"`
	MaxFee    *decimal.Decimal `json:"max_fee,omitempty"`
	CostBps   int64            `json:"cost_bps"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NormalizeMotif maps free-form caller input onto a canonical motif key.
// Exact matches win; the fuzzy fallback mirrors the console's behavior for
// legacy category labels.
func NormalizeMotif(motif string) string {
	m := strings.ToLower(strings.TrimSpace(motif))
	m = strings.ReplaceAll(m, " ", "_")
	m = strings.ReplaceAll(m, "(", "")
	m = strings.ReplaceAll(m, ")", "")
	m = strings.ReplaceAll(m, "__", "_")

	switch m {
	case MotifTransfert, MotifTransfertRecu, MotifCommande,
		MotifCommandeFacture, MotifPaiementColis, MotifApprovision, MotifAjustement:
		return m
	case "transfert_reçu":
		return MotifTransfertRecu
	}

	switch {
	case strings.Contains(m, "transfert"):
		return MotifTransfert
	case strings.Contains(m, "commande"), strings.Contains(m, "facture"):
		return MotifCommande
	case strings.Contains(m, "colis"):
		return MotifPaiementColis
	}
	return m
}

// DefaultMotifRules returns the seed fee configuration: 5% on transfers and
// parcel payments, 10% on orders, with a 3% partner commission as operating
// cost on commercial motifs. Non-commercial motifs carry zero-fee flat rules
// so the motif still resolves.
func DefaultMotifRules() []*MotifRule {
	now := time.Now()
	minFee := decimal.RequireFromString("1")
	maxFee := decimal.RequireFromString("5000")

	return []*MotifRule{
		{Motif: MotifTransfert, FeeKind: FeePercent, FeeBps: 500, MinFee: &minFee, MaxFee: &maxFee, CostBps: 300, UpdatedAt: now},
		{Motif: MotifTransfertRecu, FeeKind: FeePercent, FeeBps: 500, MinFee: &minFee, MaxFee: &maxFee, CostBps: 300, UpdatedAt: now},
		{Motif: MotifCommande, FeeKind: FeePercent, FeeBps: 1000, MinFee: &minFee, MaxFee: &maxFee, CostBps: 300, UpdatedAt: now},
		{Motif: MotifCommandeFacture, FeeKind: FeePercent, FeeBps: 1000, MinFee: &minFee, MaxFee: &maxFee, CostBps: 300, UpdatedAt: now},
		{Motif: MotifPaiementColis, FeeKind: FeePercent, FeeBps: 500, MinFee: &minFee, MaxFee: &maxFee, CostBps: 300, UpdatedAt: now},
		{Motif: MotifApprovision, FeeKind: FeeFlat, FeeValue: decimal.Zero, CostBps: 0, UpdatedAt: now},
		{Motif: MotifAjustement, FeeKind: FeeFlat, FeeValue: decimal.Zero, CostBps: 0, UpdatedAt: now},
	}
}
