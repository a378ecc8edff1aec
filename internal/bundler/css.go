package bundler

import (
	"regexp"
	"strconv"
	"strings"
)

// The utility-class pipeline: component sources reference utility classes
// in class/className attributes; the generator emits rules only for the
// classes a bundle actually uses. Unknown tokens are skipped, never fatal.

var classAttrRe = regexp.MustCompile("class(?:Name)?\\s*[:=]\\s*[\"'`]([^\"'`]+)[\"'`]")

// ScanClasses extracts candidate utility class tokens from one source file.
func ScanClasses(source string) []string {
	var classes []string
	for _, match := range classAttrRe.FindAllStringSubmatch(source, -1) {
		for _, token := range strings.Fields(match[1]) {
			classes = append(classes, token)
		}
	}
	return classes
}

// GenerateCSS emits one rule per recognized utility class, in input
// order. Callers pass a sorted, de-duplicated class list.
func GenerateCSS(classes []string) string {
	var sb strings.Builder
	for _, class := range classes {
		if rule := utilityRule(class); rule != "" {
			sb.WriteString(rule)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

var spacingRe = regexp.MustCompile(`^(m|p)(t|r|b|l|x|y)?-(\d+)$`)
var gapRe = regexp.MustCompile(`^gap-(\d+)$`)

var staticUtilities = map[string]string{
	"flex":            "display:flex",
	"grid":            "display:grid",
	"block":           "display:block",
	"inline-block":    "display:inline-block",
	"hidden":          "display:none",
	"flex-col":        "flex-direction:column",
	"flex-row":        "flex-direction:row",
	"flex-wrap":       "flex-wrap:wrap",
	"items-start":     "align-items:flex-start",
	"items-center":    "align-items:center",
	"items-end":       "align-items:flex-end",
	"justify-start":   "justify-content:flex-start",
	"justify-center":  "justify-content:center",
	"justify-end":     "justify-content:flex-end",
	"justify-between": "justify-content:space-between",
	"w-full":          "width:100%",
	"h-full":          "height:100%",
	"text-left":       "text-align:left",
	"text-center":     "text-align:center",
	"text-right":      "text-align:right",
	"font-medium":     "font-weight:500",
	"font-semibold":   "font-weight:600",
	"font-bold":       "font-weight:700",
	"text-xs":         "font-size:0.75rem",
	"text-sm":         "font-size:0.875rem",
	"text-base":       "font-size:1rem",
	"text-lg":         "font-size:1.125rem",
	"text-xl":         "font-size:1.25rem",
	"text-2xl":        "font-size:1.5rem",
	"rounded":         "border-radius:0.25rem",
	"rounded-lg":      "border-radius:0.5rem",
	"rounded-full":    "border-radius:9999px",
	"shadow":          "box-shadow:0 1px 3px rgba(0,0,0,0.12)",
	"shadow-lg":       "box-shadow:0 10px 15px rgba(0,0,0,0.15)",
	"truncate":        "overflow:hidden;text-overflow:ellipsis;white-space:nowrap",
	"cursor-pointer":  "cursor:pointer",
}

// vendorPrefixed maps utilities whose properties still need vendor
// prefixes on the browsers hosts embed.
var vendorPrefixed = map[string]string{
	"select-none":     "-webkit-user-select:none;-moz-user-select:none;user-select:none",
	"appearance-none": "-webkit-appearance:none;-moz-appearance:none;appearance:none",
	"backdrop-blur":   "-webkit-backdrop-filter:blur(8px);backdrop-filter:blur(8px)",
	"sticky":          "position:-webkit-sticky;position:sticky",
}

var palette = map[string]string{
	"white":    "#ffffff",
	"black":    "#000000",
	"gray-100": "#f3f4f6",
	"gray-200": "#e5e7eb",
	"gray-500": "#6b7280",
	"gray-700": "#374151",
	"gray-900": "#111827",
	"blue-500": "#3b82f6",
	"blue-700": "#1d4ed8",
	"red-500":  "#ef4444",
	"green-500": "#22c55e",
	"amber-500": "#f59e0b",
}

var spacingSides = map[string][]string{
	"":  {""},
	"t": {"-top"},
	"r": {"-right"},
	"b": {"-bottom"},
	"l": {"-left"},
	"x": {"-left", "-right"},
	"y": {"-top", "-bottom"},
}

func utilityRule(class string) string {
	if decl, ok := staticUtilities[class]; ok {
		return ruleFor(class, decl)
	}
	if decl, ok := vendorPrefixed[class]; ok {
		return ruleFor(class, decl)
	}

	if m := spacingRe.FindStringSubmatch(class); m != nil {
		property := "margin"
		if m[1] == "p" {
			property = "padding"
		}
		n, err := strconv.Atoi(m[3])
		if err != nil || n > 96 {
			return ""
		}
		size := remValue(n)
		var decls []string
		for _, side := range spacingSides[m[2]] {
			decls = append(decls, property+side+":"+size)
		}
		return ruleFor(class, strings.Join(decls, ";"))
	}

	if m := gapRe.FindStringSubmatch(class); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > 96 {
			return ""
		}
		return ruleFor(class, "gap:"+remValue(n))
	}

	if color, ok := strings.CutPrefix(class, "bg-"); ok {
		if hex, known := palette[color]; known {
			return ruleFor(class, "background-color:"+hex)
		}
	}
	if color, ok := strings.CutPrefix(class, "text-"); ok {
		if hex, known := palette[color]; known {
			return ruleFor(class, "color:"+hex)
		}
	}

	return ""
}

// remValue renders n steps of the 0.25rem spacing scale without
// trailing zeros.
func remValue(n int) string {
	return strconv.FormatFloat(float64(n)*0.25, 'f', -1, 64) + "rem"
}

func ruleFor(class, declarations string) string {
	return "." + escapeClass(class) + "{" + declarations + "}"
}

func escapeClass(class string) string {
	return strings.ReplaceAll(class, ":", "\\:")
}
