package nomenclature

// Key discriminators keep registration-number keys and fallback composite
// keys in disjoint namespaces, so a composite can never collide with a
// real registration number.
const (
	keyTagRegistered = "N::"
	keyTagFallback   = "F::"
)

// IdentityRef carries the fields an identity key is derived from.
type IdentityRef struct {
	RegistrationNumber *string
	ProductCode        *string
	Substance          *string
	BrandName          *string
	Dosage             *string
}

// IdentityKey derives the natural key used to match a drug record across
// nomenclature versions. A present registration number wins outright;
// otherwise the code/substance/brand/dosage tuple stands in, with nil
// fields rendered empty verbatim so two records missing the same fields
// still collide predictably. Total and deterministic; no I/O.
func IdentityKey(ref IdentityRef) string {
	if n := deref(ref.RegistrationNumber); n != "" {
		return keyTagRegistered + n
	}
	return keyTagFallback +
		deref(ref.ProductCode) + "::" +
		deref(ref.Substance) + "::" +
		deref(ref.BrandName) + "::" +
		deref(ref.Dosage)
}
