package parser

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"AuctionHarvester/internal/address"
	"AuctionHarvester/internal/domain"
	"AuctionHarvester/internal/extract"
	"AuctionHarvester/internal/scanner"
)

const idDelimiter = "||"

var (
	listingInputID = regexp.MustCompile(`^hdnImov\d+`)
	nonDigits      = regexp.MustCompile(`\D`)
	registryDoc    = regexp.MustCompile(`ExibeDoc.*matricula`)
	editalDoc      = regexp.MustCompile(`ExibeDoc.*PDF`)
)

const (
	patListingNumber    = `Número do imóvel:\s*([\d-]+)`
	patAppraisal        = `Valor de avaliação:\s*R\$\s*([\d,.]+)`
	patFirstAuctionMin  = `Valor mínimo de venda 1º Leilão:\s*R\$\s*([\d,.]+)`
	patSecondAuctionMin = `Valor mínimo de venda 2º Leilão:\s*R\$\s*([\d,.]+)`
	patGenericMin       = `Valor mínimo de venda:\s*R\$\s*([\d,.]+)`
	patTotalArea        = `Área total\s*[=:]?\s*([\d,.]+)`
	patPrivateArea      = `Área privativa\s*[=:]?\s*([\d,.]+)`
	patLandArea         = `Área do terreno\s*[=:]?\s*([\d,.]+)`
	patEdital           = `Edital:\s*(.*?)\n`
	patItemNumber       = `Número do item:\s*(\d+)`
	patAuctioneer       = `Leiloeiro\(a\):\s*(.*?)\n`
	patFirstAuctionAt   = `Data do 1º Leilão\s*-\s*(.*?)\n`
	patSecondAuctionAt  = `Data do 2º Leilão\s*-\s*(.*?)\n`
	patPublishedAt      = `publicado em:\s*(\d{2}/\d{2}/\d{4}\s\d{2}:\d{2}:\d{2})`
	patPaymentTerms     = `FORMAS DE PAGAMENTO ACEITAS:\s*(.*?)(?:REGRAS PARA PAGAMENTO|$)`
	patPaymentOnline    = `FORMAS DE PAGAMENTO.*?((?:Recursos próprios|Exclusivamente à vista).*?)(?:REGRAS PARA PAGAMENTO DAS DESPESAS|$)`
	patExpenseRules     = `REGRAS PARA PAGAMENTO DAS DESPESAS.*?:\s(.*?)(?:FORMAS DE PAGAMENTO|$)`
	patExpenseOnline    = `REGRAS PARA PAGAMENTO DAS DESPESAS.*?((?:Condomínio|Tributos).*?)(?:\s*$|\s*FORMAS DE PAGAMENTO)`
	patPostalCode       = `CEP:\s*([\d-]+)`
	patExibeDoc         = `ExibeDoc\('(.*?)'\)`
	patSiteLeiloeiro    = `SiteLeiloeiro\("(.*?)"\)`
	patCommentStatus    = `<strong>(.*?)</strong>`
)

// parseSearchIDs collects, dedups and sorts the listing IDs a search page
// carries in its hidden inputs.
func parseSearchIDs(doc *goquery.Document) []string {
	seen := map[string]struct{}{}
	doc.Find(`input[id^="hdnImov"]`).Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		if !listingInputID.MatchString(id) {
			return
		}
		for _, raw := range strings.Split(s.AttrOr("value", ""), idDelimiter) {
			if raw = strings.TrimSpace(raw); raw != "" {
				seen[raw] = struct{}{}
			}
		}
	})

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// parseListEntries reads every list item of a batch page. Items without a
// listing number come back as skips.
func parseListEntries(doc *goquery.Document, baseURL string) []scanner.Entry {
	var entries []scanner.Entry
	doc.Find("li.group-block-item").Each(func(_ int, item *goquery.Selection) {
		entries = append(entries, parseListItem(item, baseURL))
	})
	return entries
}

func parseListItem(item *goquery.Selection, baseURL string) scanner.Entry {
	rows := item.Find("li.form-row.clearfix")
	if rows.Length() < 2 {
		return scanner.Entry{Skip: &domain.ExtractionSkip{Reason: "description block missing"}}
	}

	block := blockText(rows.Eq(1))
	number, ok := extract.Span(patListingNumber, block)
	if !ok || number == "" {
		return scanner.Entry{Skip: &domain.ExtractionSkip{Reason: "listing number not found"}}
	}

	li := scanner.ListItem{
		Number:      number,
		NumericID:   nonDigits.ReplaceAllString(number, ""),
		Description: firstLine(block),
		RawAmount:   trimmed(item.Find("li.form-row").First()),
	}
	if src, ok := item.Find("div.fotoimovel-col1 img").First().Attr("src"); ok && src != "" {
		li.ImageURL = absoluteURL(baseURL, src)
	}
	return scanner.Entry{Item: li}
}

// parseDetail extracts a listing from a detail page. Malformed dates are
// reported alongside the listing rather than failing it.
func parseDetail(doc *goquery.Document, item scanner.ListItem, cat domain.Category, baseURL, detailURL string, loc *time.Location) (domain.Listing, []error, error) {
	data := doc.Find("div#dadosImovel").First()
	if data.Length() == 0 {
		return domain.Listing{}, nil, &domain.ExtractionSkip{Reason: "detail block missing"}
	}

	var warnings []error
	date := func(text string, ok bool) *time.Time {
		if !ok {
			return nil
		}
		t, err := extract.ParseDateIn(text, loc)
		if err != nil {
			if !errors.Is(err, extract.ErrEmpty) {
				warnings = append(warnings, err)
			}
			return nil
		}
		return &t
	}

	l := domain.Listing{
		Number:      item.Number,
		NumericID:   item.NumericID,
		Description: item.Description,
		ImageURL:    item.ImageURL,
		Title:       trimmed(data.Find("h5").First()),
		Modality:    cat.Modality,
		SourceURL:   detailURL + "?hdnImovel=" + item.NumericID,
	}

	prices := data.Find(`p[style="font-size:14pt"]`).First().Text()
	l.AppraisalValue = spanNumber(patAppraisal, prices)
	l.FirstAuctionMin = spanNumber(patFirstAuctionMin, prices)
	l.SecondAuctionMin = spanNumber(patSecondAuctionMin, prices)
	l.Amount = extract.FirstPresent(
		l.FirstAuctionMin,
		l.SecondAuctionMin,
		spanNumber(patGenericMin, prices),
		extract.ParseNumberPtr(item.RawAmount),
	)

	if content := data.Find("div.content").First(); content.Length() > 0 {
		applyContentSpans(&l, content)
		text := joinedText(content, " ")
		l.TotalArea = extract.FirstPresent(spanNumber(patTotalArea, text), l.TotalArea)
		l.PrivateArea = extract.FirstPresent(spanNumber(patPrivateArea, text), l.PrivateArea)
		l.LandArea = extract.FirstPresent(spanNumber(patLandArea, text), l.LandArea)
	}

	l.Status = parseStatus(doc, data)

	if box := data.Find("div.related-box").First(); box.Length() > 0 {
		lines := joinedText(box, "\n") + "\n"
		full := joinedText(box, " ")

		l.Edital = span(patEdital, lines)
		l.ItemNumber = span(patItemNumber, lines)
		l.Auctioneer = span(patAuctioneer, lines)
		l.FirstAuctionAt = date(extract.Span(patFirstAuctionAt, lines))
		l.SecondAuctionAt = date(extract.Span(patSecondAuctionAt, lines))
		l.EditalPublishedAt = date(extract.Span(patPublishedAt, full))

		l.PaymentTerms = firstNonEmpty(span(patPaymentTerms, full), span(patPaymentOnline, full))
		l.ExpenseRules = firstNonEmpty(span(patExpenseRules, full), span(patExpenseOnline, full))

		if desc := textAfterLabel(box, "Descrição:"); desc != "." {
			l.DetailedDescription = desc
		}
		if addr := textAfterLabel(box, "Endereço:"); addr != "" {
			l.Address = addr
			l.PostalCode = span(patPostalCode, addr)
		}
	}

	l.HiddenID = strings.TrimSpace(data.Find("input#hdnimovel").AttrOr("value", ""))
	applyLinks(&l, doc, baseURL)

	if l.Address != "" {
		if uf, _, ok := address.StateCode(l.Address); ok {
			l.State = uf
		}
	}

	return l, warnings, nil
}

func applyContentSpans(l *domain.Listing, content *goquery.Selection) {
	content.Find("span").Each(func(_ int, s *goquery.Selection) {
		text := trimmed(s)
		key, value, _ := strings.Cut(text, ":")
		value = strings.TrimSpace(value)
		if strong := s.Find("strong").First(); strong.Length() > 0 {
			value = trimmed(strong)
		}

		switch {
		case strings.Contains(key, "Tipo de imóvel"):
			l.PropertyType = value
		case strings.Contains(key, "Quartos"):
			if n, ok := extract.ParseInt(value); ok {
				l.Rooms = &n
			}
		case strings.Contains(key, "Garagem"):
			if n, ok := extract.ParseInt(value); ok {
				l.Garage = &n
			}
		case strings.Contains(key, "Matrícula(s)"):
			l.Registry = value
		case strings.Contains(key, "Comarca"):
			l.Jurisdiction = value
		case strings.Contains(key, "Ofício"):
			l.RegistryOffice = value
		case strings.Contains(key, "Inscrição imobiliária"):
			l.Inscription = value
		case strings.Contains(key, "Averbação dos leilões negativos"):
			l.NegativeAuctionNote = value
		case strings.Contains(text, "Área total"):
			l.TotalArea = spanNumber(patTotalArea, text)
		case strings.Contains(text, "Área privativa"):
			l.PrivateArea = spanNumber(patPrivateArea, text)
		case strings.Contains(text, "Área do terreno"):
			l.LandArea = spanNumber(patLandArea, text)
		}
	})
}

// parseStatus reads the visible status first and falls back to commented
// out markup, which the source uses for conditional rendering.
func parseStatus(doc *goquery.Document, data *goquery.Selection) string {
	visible := data.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), "Situação:")
	}).First()
	if visible.Length() > 0 {
		if strong := visible.Find("strong").First(); strong.Length() > 0 {
			if v := trimmed(strong); v != "" {
				return v
			}
		}
	}

	for _, c := range comments(doc.Selection) {
		if !strings.Contains(c, "Situação:") {
			continue
		}
		if v, ok := extract.Span(patCommentStatus, c); ok && v != "" {
			return v
		}
	}
	return ""
}

func applyLinks(l *domain.Listing, doc *goquery.Document, baseURL string) {
	doc.Find("a[onclick]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		onclick := s.AttrOr("onclick", "")
		path, ok := extract.Span(patExibeDoc, onclick)
		if !ok {
			return true
		}
		switch {
		case l.RegistryDocURL == "" && registryDoc.MatchString(onclick):
			l.RegistryDocURL = absoluteURL(baseURL, path)
		case l.EditalURL == "" && editalDoc.MatchString(onclick):
			l.EditalURL = absoluteURL(baseURL, path)
		}
		return l.RegistryDocURL == "" || l.EditalURL == ""
	})

	doc.Find("button[onclick]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if site, ok := extract.Span(patSiteLeiloeiro, s.AttrOr("onclick", "")); ok && site != "" {
			l.AuctioneerSiteURL = "http://" + site
			return false
		}
		return true
	})

	if href, ok := doc.Find(`a[href*="regrasVendaOnline"]`).First().Attr("href"); ok {
		l.OnlineSaleURL = absoluteURL(baseURL, href)
	}
	if href, ok := doc.Find(`a[href*="formasPagamento"]`).First().Attr("href"); ok {
		l.PaymentTermsURL = absoluteURL(baseURL, href)
	}

	doc.Find("div#galeria-imagens img").Each(func(_ int, s *goquery.Selection) {
		if src := s.AttrOr("src", ""); src != "" {
			l.Photos = append(l.Photos, absoluteURL(baseURL, src))
		}
	})
}

func span(pattern, text string) string {
	v, _ := extract.Span(pattern, text)
	return v
}

func spanNumber(pattern, text string) *float64 {
	v, ok := extract.Span(pattern, text)
	if !ok {
		return nil
	}
	return extract.ParseNumberPtr(v)
}

func firstLine(block string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(block), "\n")
	return strings.TrimSpace(line)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func absoluteURL(baseURL, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return strings.TrimSuffix(baseURL, "/") + ref
}
