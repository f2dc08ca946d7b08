package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// QuoteData is the render model for the customer-facing quote
// document. All money fields arrive preformatted; the renderer does no
// arithmetic.
type QuoteData struct {
	CompanyName  string
	QuoteNumber  string
	CustomerName string
	ProjectName  string
	Currency     string
	CreatedDate  string
	VATRateLabel string

	MandatoryItems []QuoteLine
	SelectedItems  []QuoteLine

	BaseSubtotal     string
	OptionalSubtotal string
	Subtotal         string
	VAT              string
	Total            string
}

type QuoteLine struct {
	Description string
	Ref         string
	Qty         string
	Unit        string
	UnitPrice   string
	LineTotal   string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateQuote(ctx context.Context, data QuoteData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Sida {current} av {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(12, "OFFERT", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	m.AddRow(10,
		text.NewCol(12, data.CompanyName, props.Text{
			Size:  13,
			Align: align.Left,
		}),
	)

	// Quote Meta
	m.AddRow(14,
		col.New(6).Add(
			text.New("Datum: "+data.CreatedDate, props.Text{Top: 0}),
			text.New("Offertnummer: "+data.QuoteNumber, props.Text{Top: 4}),
		),
		col.New(6),
	)

	// Project Details
	projectRows := []core.Component{
		text.New("Projektinformation", props.Text{Style: fontstyle.Bold}),
		text.New("Kund: "+data.CustomerName, props.Text{Top: 5}),
	}
	top := 9.0
	if data.ProjectName != "" {
		projectRows = append(projectRows, text.New("Projekt: "+data.ProjectName, props.Text{Top: top}))
		top += 4
	}
	projectRows = append(projectRows, text.New("Valuta: "+data.Currency, props.Text{Top: top}))
	m.AddRow(22, col.New(12).Add(projectRows...))

	addItemSection(m, "Grundarbete & Material", data.MandatoryItems, data.Currency)
	if len(data.SelectedItems) > 0 {
		addItemSection(m, "Valda tillval", data.SelectedItems, data.Currency)
	}

	// Summary
	m.AddRow(12,
		text.NewCol(12, "Summering", props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Top:   4,
		}),
	)
	addTotalRow(m, "Grundsumma:", data.BaseSubtotal+" "+data.Currency, false)
	if len(data.SelectedItems) > 0 {
		addTotalRow(m, "Tillval:", data.OptionalSubtotal+" "+data.Currency, false)
	}
	addTotalRow(m, "Delsumma:", data.Subtotal+" "+data.Currency, false)
	addTotalRow(m, "Moms ("+data.VATRateLabel+"%):", data.VAT+" "+data.Currency, false)
	addTotalRow(m, "TOTALT:", data.Total+" "+data.Currency, true)

	// Footer
	m.AddRow(18,
		col.New(12).Add(
			text.New("Denna offert är giltig i 30 dagar från "+data.CreatedDate, props.Text{Size: 9, Top: 8, Align: align.Center}),
			text.New("För frågor, kontakta oss via telefon eller e-post", props.Text{Size: 9, Top: 12, Align: align.Center}),
		),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

func addItemSection(m core.Maroto, title string, items []QuoteLine, currency string) {
	m.AddRow(12,
		text.NewCol(12, title, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Top:   4,
		}),
	)

	// Table Header
	m.AddRow(8,
		text.NewCol(6, "Beskrivning", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Antal", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "À-pris", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Summa", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range items {
		desc := item.Description
		if item.Ref != "" {
			desc += " (Ref: " + item.Ref + ")"
		}
		qty := item.Qty
		if item.Unit != "" {
			qty += " " + item.Unit
		}
		m.AddRow(10,
			text.NewCol(6, desc, props.Text{Size: 9}),
			text.NewCol(2, qty, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice+" "+currency, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.LineTotal+" "+currency, props.Text{Size: 9, Align: align.Right}),
		)
	}
}

func addTotalRow(m core.Maroto, label, value string, bold bool) {
	style := fontstyle.Normal
	size := 9.0
	if bold {
		style = fontstyle.Bold
		size = 11
	}
	m.AddRow(8,
		col.New(6),
		text.NewCol(3, label, props.Text{Style: style, Size: size}),
		text.NewCol(3, value, props.Text{Style: style, Size: size, Align: align.Right}),
	)
}
