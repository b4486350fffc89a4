package extract

import (
	"testing"

	"github.com/Huser-Networks/admin-assistant-ocr/internal/profile"
)

func testEffective() *profile.Effective {
	return &profile.Effective{
		UserInfo: profile.UserInfo{
			Names:     []string{"Jean DUPONT"},
			Addresses: []string{"12 rue des Lilas"},
			Companies: []string{"Dupont Consulting"},
		},
		ExtractionZones: profile.ExtractionZones{
			RecipientZone: profile.RecipientZone{
				Keywords: []string{"destinataire", "client", "livré à"},
			},
			SupplierZone: profile.SupplierZone{
				PreferBeforeKeywords: []string{"facture"},
				AvoidAfterKeywords:   []string{"destinataire", "client"},
			},
		},
	}
}

func TestSupplierExtractor_PicksHeaderCompany(t *testing.T) {
	e := NewSupplierExtractor(testRules(t), nil)

	text := "EDF Entreprises SA\n20 place de la Défense\nFacture n° FAC-001"
	got, ok := e.Extract(text, testEffective())
	if !ok {
		t.Fatal("expected a supplier")
	}
	if got != "EDF Entreprises" {
		t.Errorf("expected EDF Entreprises, got %q", got)
	}
}

func TestSupplierExtractor_RecipientZoneSuppression(t *testing.T) {
	e := NewSupplierExtractor(testRules(t), nil)

	// The recipient block line carries a company indicator and would
	// outscore everything by the raw heuristic; the zone must win.
	text := "Papeterie Durand\nDestinataire:\nGrosse Societe Anonyme SARL\nFacture payable sous 30 jours"
	got, ok := e.Extract(text, testEffective())
	if !ok {
		t.Fatal("expected a supplier")
	}
	if got != "Papeterie Durand" {
		t.Errorf("expected zone-suppressed extraction to pick Papeterie Durand, got %q", got)
	}
}

func TestSupplierExtractor_IdentitySuppression(t *testing.T) {
	e := NewSupplierExtractor(testRules(t), nil)

	cases := []struct {
		name string
		line string
	}{
		{"own name", "M. Jean DUPONT"},
		{"own address", "12 rue des Lilas, Paris"},
		{"own company", "DUPONT CONSULTING SARL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text := tc.line + "\nBoulangerie Martin\nFacture n° 42"
			got, ok := e.Extract(text, testEffective())
			if !ok {
				t.Fatal("expected a supplier")
			}
			if got != "Boulangerie Martin" {
				t.Errorf("self-identity line should be skipped, got %q", got)
			}
		})
	}
}

func TestSupplierExtractor_NoCandidate(t *testing.T) {
	e := NewSupplierExtractor(testRules(t), nil)

	// Only the user's own identity appears.
	text := "Jean DUPONT\n12 rue des Lilas"
	if got, ok := e.Extract(text, testEffective()); ok {
		t.Errorf("expected no supplier, got %q", got)
	}
}

func TestCleanSupplierName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"legal suffix stripped", "Total Energies SAS", "Total Energies"},
		{"registry tail stripped", "Orange SIRET 380 129 866", "Orange"},
		{"bullets stripped", "• Carrefour •", "Carrefour"},
		{"plain name untouched", "Boulangerie Martin", "Boulangerie Martin"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanSupplierName(tc.in); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
