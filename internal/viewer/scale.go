package viewer

// ReferencePageWidth is the nominal page width (US Letter, in points) the
// scale is derived from.
const ReferencePageWidth = 612.0

// scaleTier bounds the scale for viewports up to maxWidth.
type scaleTier struct {
	maxWidth float64
	lower    float64
	upper    float64
}

var scaleTiers = []scaleTier{
	{maxWidth: 480, lower: 0.7, upper: 1.1},
	{maxWidth: 768, lower: 1.0, upper: 1.3},
	{maxWidth: 1024, lower: 1.1, upper: 1.5},
}

var desktopTier = scaleTier{lower: 1.4, upper: 1.8}

// CalculateScale maps a viewport width to the render scale for its breakpoint.
func CalculateScale(viewportWidth float64) float64 {
	return tierFor(viewportWidth).clamp(viewportWidth / ReferencePageWidth)
}

func tierFor(width float64) scaleTier {
	for _, t := range scaleTiers {
		if width <= t.maxWidth {
			return t
		}
	}
	return desktopTier
}

func (t scaleTier) clamp(v float64) float64 {
	if v < t.lower {
		return t.lower
	}
	if v > t.upper {
		return t.upper
	}
	return v
}
