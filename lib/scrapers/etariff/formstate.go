package etariff

import (
	"strings"

	"etariff-downloader/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// FormFields parses a form-bearing page and returns every named field's
// current value the way a browser would serialize it on submit. Fields
// without a value attribute map to "", unnamed or unchecked fields are
// omitted, nothing is synthesized. Malformed fragments are skipped
// rather than failing the whole extraction.
func FormFields(page string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}

	doc.Find("input").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		switch strings.ToLower(input.AttrOr("type", "text")) {
		case "checkbox", "radio":
			if _, checked := input.Attr("checked"); !checked {
				return
			}
			fields[name] = input.AttrOr("value", "on")
		case "submit", "button", "image", "reset", "file":
			// only the clicked submit control participates, the export
			// overlay names it through __EVENTTARGET instead
			return
		default:
			fields[name] = input.AttrOr("value", "")
		}
	})

	doc.Find("select").Each(func(_ int, sel *goquery.Selection) {
		name := sel.AttrOr("name", "")
		if name == "" {
			return
		}
		value, ok := selectedOption(sel)
		if !ok {
			return
		}
		fields[name] = value
	})

	doc.Find("textarea").Each(func(_ int, area *goquery.Selection) {
		name := area.AttrOr("name", "")
		if name == "" || len(area.Nodes) == 0 {
			return
		}
		fields[name] = htmlutil.GetText(area.Nodes[0])
	})

	return fields, nil
}

// first selected option wins, falling back to the first option like a
// browser's implicit default selection
func selectedOption(sel *goquery.Selection) (string, bool) {
	options := sel.Find("option")
	if options.Length() == 0 {
		return "", false
	}

	value := ""
	found := false
	options.EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		if _, selected := opt.Attr("selected"); !selected {
			return true
		}
		value = optionValue(opt)
		found = true
		return false
	})
	if found {
		return value, true
	}
	return optionValue(options.First()), true
}

func optionValue(opt *goquery.Selection) string {
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	if len(opt.Nodes) > 0 {
		return strings.TrimSpace(htmlutil.GetText(opt.Nodes[0]))
	}
	return ""
}
