package domain

// Source identifies where a transaction came from: the PIX bank account or
// one of the credit cards. Card sources are resolved from the card's final
// four digits via the bank-specific static tables below.
type Source string

const (
	SourcePix Source = "PIX"

	SourceMasterFisico     Source = "Master Físico"
	SourceMasterVirtual    Source = "Master Virtual"
	SourceMasterRecorrente Source = "Master Recorrente"

	SourceVisaFisico     Source = "Visa Físico"
	SourceVisaVirtual    Source = "Visa Virtual"
	SourceVisaRecorrente Source = "Visa Recorrente"

	// Named holder variants tied to specific finals. Treated as opaque
	// source values; the store and reports make no further distinction.
	SourceVisaBia Source = "Visa Bia"
	SourceVisaMae Source = "Visa Mãe"
)

// AllSources lists every valid source value.
var AllSources = []Source{
	SourcePix,
	SourceMasterFisico, SourceMasterVirtual, SourceMasterRecorrente,
	SourceVisaFisico, SourceVisaVirtual, SourceVisaRecorrente,
	SourceVisaBia, SourceVisaMae,
}

// IsCard reports whether the source is a credit card (anything but PIX).
func (s Source) IsCard() bool {
	return s != SourcePix && s != ""
}

// BankProfile maps card finals to sources for one bank. Unknown finals fall
// back to the bank's virtual card, which is where online-generated numbers
// end up.
type BankProfile struct {
	Name     string
	Finals   map[string]Source
	Fallback Source
}

// ResolveCardFinal returns the source for a card's final four digits.
func (b *BankProfile) ResolveCardFinal(final string) Source {
	if src, ok := b.Finals[final]; ok {
		return src
	}
	return b.Fallback
}

// BankItau is the Mastercard-issuing profile.
var BankItau = &BankProfile{
	Name: "Itau",
	Finals: map[string]Source{
		"3339": SourceMasterFisico,
		"0203": SourceMasterVirtual,
		"1907": SourceMasterRecorrente,
	},
	Fallback: SourceMasterVirtual,
}

// BankPersonnalite is the Visa-issuing profile, including the named
// holder variants.
var BankPersonnalite = &BankProfile{
	Name: "Personnalite",
	Finals: map[string]Source{
		"6259": SourceVisaFisico,
		"5610": SourceVisaVirtual,
		"1603": SourceVisaRecorrente,
		"8455": SourceVisaBia,
		"0297": SourceVisaMae,
	},
	Fallback: SourceVisaVirtual,
}

// BankProfiles indexes the known profiles by name, as used in spreadsheet
// file names ({YYYYMM}_{BankName}.xlsx) and Open-Finance institution ids.
var BankProfiles = map[string]*BankProfile{
	BankItau.Name:         BankItau,
	BankPersonnalite.Name: BankPersonnalite,
}
