// Package publish formats nomenclature events as French announcements and
// fans them out to the configured platforms.
package publish

import (
	"fmt"
	"strings"

	"github.com/pharmaveille/pharmadz/internal/store"
)

const siteURL = "https://pharmadz.dz"

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return "N/C"
	}
	return *s
}

// FormatWithdrawalAlert renders one market withdrawal as a post body.
func FormatWithdrawalAlert(w store.WithdrawnDrug) string {
	var b strings.Builder
	b.WriteString("⚠️ RETRAIT DU MARCHÉ\n\n")
	fmt.Fprintf(&b, "Produit : %s (%s)\n", orUnknown(w.BrandName), orUnknown(w.Substance))
	fmt.Fprintf(&b, "Laboratoire : %s\n", orUnknown(w.Manufacturer))
	if w.WithdrawnOn != nil {
		fmt.Fprintf(&b, "Date de retrait : %s\n", *w.WithdrawnOn)
	}
	if w.WithdrawalReason != nil {
		fmt.Fprintf(&b, "Motif : %s\n", *w.WithdrawalReason)
	}
	b.WriteString("\nDétails : " + siteURL + "/retraits")
	return b.String()
}

// FormatVersionAnnouncement renders a freshly ingested nomenclature
// version as a post body.
func FormatVersionAnnouncement(label string, total, added, removed int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Nomenclature %s publiée\n\n", label)
	fmt.Fprintf(&b, "%d produits enregistrés\n", total)
	if added > 0 {
		fmt.Fprintf(&b, "🆕 %d nouveaux produits\n", added)
	}
	if removed > 0 {
		fmt.Fprintf(&b, "➖ %d produits sortis de la liste\n", removed)
	}
	b.WriteString("\nConsulter : " + siteURL)
	return b.String()
}

// FormatWeeklyRecap renders the scheduled weekly summary.
func FormatWeeklyRecap(stats store.Stats, withdrawals []store.WithdrawnDrug) string {
	var b strings.Builder
	b.WriteString("🗓️ Le point de la semaine\n\n")
	if stats.CurrentVersion != nil {
		fmt.Fprintf(&b, "Nomenclature en vigueur : %s\n", *stats.CurrentVersion)
	}
	fmt.Fprintf(&b, "%d produits enregistrés, %d retraits, %d non renouvelés\n",
		stats.TotalRegistrations, stats.TotalWithdrawals, stats.TotalNonRenewals)
	if stats.NewInCurrentVersion > 0 {
		fmt.Fprintf(&b, "🆕 %d nouveautés dans la version en cours\n", stats.NewInCurrentVersion)
	}

	if len(withdrawals) > 0 {
		b.WriteString("\nDerniers retraits :\n")
		max := len(withdrawals)
		if max > 5 {
			max = 5
		}
		for _, w := range withdrawals[:max] {
			fmt.Fprintf(&b, "• %s (%s)\n", orUnknown(w.BrandName), orUnknown(w.Substance))
		}
	}

	b.WriteString("\n" + siteURL)
	return b.String()
}
