// Package badge renders the deterministic SVG artifact for a tier.
//
// The five templates are part of the public contract: downstream consumers
// cache and diff them, so output must stay byte-identical across releases.
// They are kept as whole literals rather than assembled from a template for
// exactly that reason.
package badge

import "badgemint/internal/identity/models"

const (
	noviceSVG      = "<svg xmlns='http://www.w3.org/2000/svg' width='350' height='200'><rect width='100%' height='100%' fill='#b0c4de'/><text x='50%' y='100' font-size='24' fill='#181c2f' text-anchor='middle'>Novice</text></svg>"
	proSVG         = "<svg xmlns='http://www.w3.org/2000/svg' width='350' height='200'><rect width='100%' height='100%' fill='#90ee90'/><text x='50%' y='100' font-size='24' fill='#181c2f' text-anchor='middle'>Pro</text></svg>"
	architectSVG   = "<svg xmlns='http://www.w3.org/2000/svg' width='350' height='200'><rect width='100%' height='100%' fill='#ffd700'/><text x='50%' y='100' font-size='24' fill='#181c2f' text-anchor='middle'>Architect</text></svg>"
	legendSVG      = "<svg xmlns='http://www.w3.org/2000/svg' width='350' height='200'><rect width='100%' height='100%' fill='#ff8c00'/><text x='50%' y='100' font-size='24' fill='#fff' text-anchor='middle'>Legend</text></svg>"
	singularitySVG = "<svg xmlns='http://www.w3.org/2000/svg' width='350' height='200'><rect width='100%' height='100%' fill='#8a2be2'/><text x='50%' y='100' font-size='24' fill='#fff' text-anchor='middle'>Singularity</text></svg>"
)

// Render returns the SVG badge for a tier. Pure: the output depends on the
// tier alone. An unrecognized tier falls back to the Novice badge rather than
// erroring, since Render operates on already-validated tiers.
func Render(tier models.Tier) string {
	switch tier {
	case models.TierPro:
		return proSVG
	case models.TierArchitect:
		return architectSVG
	case models.TierLegend:
		return legendSVG
	case models.TierSingularity:
		return singularitySVG
	default:
		return noviceSVG
	}
}
