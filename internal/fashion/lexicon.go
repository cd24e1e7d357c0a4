package fashion

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// categoryKeywords drives label-based detection. A keyword may appear under
// more than one category; the label then yields one candidate per category.
var categoryKeywords = map[Category][]string{
	CategoryTops:        {"shirt", "blouse", "top", "sweater", "hoodie", "jacket", "coat", "cardigan", "t-shirt", "tank top"},
	CategoryBottoms:     {"pants", "jeans", "trousers", "shorts", "skirt", "leggings", "bottom"},
	CategoryDress:       {"dress", "gown", "robe", "frock"},
	CategoryShoes:       {"shoe", "boot", "sneaker", "sandal", "heel", "footwear", "loafer"},
	CategoryAccessories: {"bag", "purse", "handbag", "backpack", "hat", "cap", "sunglasses", "watch", "jewelry", "necklace", "bracelet"},
	CategoryOuter:       {"jacket", "coat", "blazer", "cardigan", "outerwear"},
}

type objectRule struct {
	category Category
	keywords []string
}

// objectRules classify localized objects that no label accounted for.
// First match wins.
var objectRules = []objectRule{
	{CategoryTops, []string{"clothing", "shirt", "top"}},
	{CategoryBottoms, []string{"pants", "jeans", "bottom"}},
	{CategoryDress, []string{"dress"}},
	{CategoryShoes, []string{"shoe", "footwear"}},
	{CategoryAccessories, []string{"bag", "accessory"}},
	{CategoryOuter, []string{"jacket", "coat"}},
}

func categorizeObject(name string) Category {
	lower := strings.ToLower(name)
	for _, rule := range objectRules {
		if containsAny(lower, rule.keywords...) {
			return rule.category
		}
	}
	return CategoryUnknown
}

type lexiconEntry struct {
	english  string
	japanese string
	category Category
}

// itemLexicon translates English garment words to the catalog language.
var itemLexicon = []lexiconEntry{
	{"sweater", "セーター", CategoryTops},
	{"shirt", "シャツ", CategoryTops},
	{"t-shirt", "Tシャツ", CategoryTops},
	{"blouse", "ブラウス", CategoryTops},
	{"top", "トップス", CategoryTops},
	{"tank top", "タンクトップ", CategoryTops},
	{"knit", "ニット", CategoryTops},
	{"vest", "ベスト", CategoryTops},
	{"hoodie", "パーカー", CategoryOuter},
	{"jacket", "ジャケット", CategoryOuter},
	{"blazer", "ジャケット", CategoryOuter},
	{"coat", "コート", CategoryOuter},
	{"cardigan", "カーディガン", CategoryOuter},
	{"outerwear", "アウター", CategoryOuter},
	{"suit", "スーツ", CategoryOuter},
	{"pants", "パンツ", CategoryBottoms},
	{"trousers", "パンツ", CategoryBottoms},
	{"active pants", "スポーツパンツ", CategoryBottoms},
	{"jeans", "ジーンズ", CategoryBottoms},
	{"shorts", "ショートパンツ", CategoryBottoms},
	{"skirt", "スカート", CategoryBottoms},
	{"leggings", "レギンス", CategoryBottoms},
	{"stockings", "ストッキング", CategoryBottoms},
	{"dress", "ワンピース", CategoryDress},
	{"gown", "ドレス", CategoryDress},
	{"shoe", "靴", CategoryShoes},
	{"footwear", "靴", CategoryShoes},
	{"boot", "ブーツ", CategoryShoes},
	{"sneaker", "スニーカー", CategoryShoes},
	{"sandal", "サンダル", CategoryShoes},
	{"heel", "ヒール", CategoryShoes},
	{"loafer", "ローファー", CategoryShoes},
	{"bag", "バッグ", CategoryAccessories},
	{"purse", "バッグ", CategoryAccessories},
	{"handbag", "ハンドバッグ", CategoryAccessories},
	{"backpack", "リュック", CategoryAccessories},
	{"wallet", "財布", CategoryAccessories},
	{"hat", "帽子", CategoryAccessories},
	{"cap", "キャップ", CategoryAccessories},
	{"sunglasses", "サングラス", CategoryAccessories},
	{"watch", "時計", CategoryAccessories},
	{"jewelry", "アクセサリー", CategoryAccessories},
	{"accessory", "アクセサリー", CategoryAccessories},
	{"necklace", "ネックレス", CategoryAccessories},
	{"bracelet", "ブレスレット", CategoryAccessories},
	{"earring", "イヤリング", CategoryAccessories},
	{"ring", "指輪", CategoryAccessories},
	{"scarf", "スカーフ", CategoryAccessories},
	{"glove", "手袋", CategoryAccessories},
	{"belt", "ベルト", CategoryAccessories},
	{"tie", "ネクタイ", CategoryAccessories},
	{"sock", "靴下", CategoryAccessories},
}

// TranslateItem finds the catalog-language item name for an English label.
// An exact match wins; otherwise the longest lexicon word occurring as a
// whole word (plurals included) in the label is used.
func TranslateItem(label string) (japanese string, category Category, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower == "" {
		return "", CategoryUnknown, false
	}
	for _, e := range itemLexicon {
		if e.english == lower {
			return e.japanese, e.category, true
		}
	}

	text := " " + strings.Join(asciiWords(lower), " ") + " "
	var best *lexiconEntry
	for i := range itemLexicon {
		e := &itemLexicon[i]
		if !containsWord(text, e.english) {
			continue
		}
		if best == nil || len(e.english) > len(best.english) {
			best = e
		}
	}
	if best == nil {
		return "", CategoryUnknown, false
	}
	return best.japanese, best.category, true
}

// itemName resolves the catalog-language name for a detected item, falling
// back to the generic category word.
func itemName(item DetectedItem) string {
	source := item.Label
	if source == "" {
		source = item.Description
	}
	if jp, _, ok := TranslateItem(source); ok {
		return jp
	}
	if jp := item.Category.Japanese(); jp != "" {
		return jp
	}
	return item.Category.String()
}

type japaneseTerm struct {
	word     string
	category Category
}

// japaneseTerms lists every catalog-language item word, longest first, so
// that ショートパンツ is preferred over パンツ.
var japaneseTerms = func() []japaneseTerm {
	var out []japaneseTerm
	seen := make(map[string]bool)
	add := func(word string, c Category) {
		if seen[word] {
			return
		}
		seen[word] = true
		out = append(out, japaneseTerm{word, c})
	}
	for _, e := range itemLexicon {
		add(e.japanese, e.category)
	}
	for _, c := range Categories {
		add(c.Japanese(), c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return utf8.RuneCountInString(out[i].word) > utf8.RuneCountInString(out[j].word)
	})
	return out
}()

// categoryOfQuery guesses the category of a query by the longest item word it
// mentions. English words are accepted too.
func categoryOfQuery(query string) (Category, bool) {
	for _, t := range japaneseTerms {
		if strings.Contains(query, t.word) {
			return t.category, true
		}
	}
	_, c, ok := TranslateItem(query)
	return c, ok
}

func containsWord(text, word string) bool {
	return strings.Contains(text, " "+word+" ") ||
		strings.Contains(text, " "+word+"s ") ||
		strings.Contains(text, " "+word+"es ")
}

// asciiWords splits on anything that is not an ASCII letter, digit or hyphen,
// so "赤のred sweater" yields [red sweater].
func asciiWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-')
	})
}
