package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	companydomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/company/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/companyctx"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/config"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/metricspush"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/calc"
	pricingdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/providers/email"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/providers/pdf"
	quotedomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/format"
	tuningdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/tuning/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/pkg/db/option"
	"github.com/Calle9610/smart-offertgenerator-sub001/pkg/db/pagination"
	"github.com/Calle9610/smart-offertgenerator-sub001/pkg/repository"
	"github.com/Calle9610/smart-offertgenerator-sub001/pkg/selection"
)

// Quotes without a price profile fall back to Swedish standard VAT.
var fallbackVATRate = decimal.RequireFromString("25.00")

const defaultCurrency = "SEK"

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cfg   config.Config

	Repo       quotedomain.Repository
	PricingSvc pricingdomain.Service
	TuningSvc  tuningdomain.Service
	CompanySvc companydomain.Service
	Email      email.Provider
	PDF        pdf.Provider
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	cfg   config.Config

	repo       quotedomain.Repository
	quoterepo  repository.Repository[quotedomain.Quote]
	pricingSvc pricingdomain.Service
	tuningSvc  tuningdomain.Service
	companySvc companydomain.Service
	email      email.Provider
	pdf        pdf.Provider
}

func New(p Params) quotedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("quote.service"),
		genID: p.GenID,
		cfg:   p.Cfg,

		repo:       p.Repo,
		quoterepo:  repository.ProvideStore[quotedomain.Quote](p.DB),
		pricingSvc: p.PricingSvc,
		tuningSvc:  p.TuningSvc,
		companySvc: p.CompanySvc,
		email:      p.Email,
		pdf:        p.PDF,
	}
}

func (s *Service) Create(ctx context.Context, req quotedomain.CreateQuoteRequest) (*quotedomain.QuoteResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	userID, _ := companyctx.UserIDFromContext(ctx)

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.CustomerName == "" {
		return nil, quotedomain.ErrInvalidCustomer
	}
	if len(req.Items) == 0 {
		return nil, quotedomain.ErrInvalidItem
	}
	modes, err := normalizeModes(req.OptionGroupModes)
	if err != nil {
		return nil, err
	}

	profile, profileID, err := s.resolveProfile(ctx, companyID, req.ProfileID)
	if err != nil {
		return nil, err
	}
	vatRate := fallbackVATRate
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if profile != nil {
		vatRate = profile.VATRate
		if currency == "" {
			currency = profile.Currency
		}
	}
	if currency == "" {
		currency = defaultCurrency
	}

	now := time.Now().UTC()
	quoteID := s.genID.Generate()

	items, err := s.buildItems(ctx, companyID, quoteID, req.Items, now)
	if err != nil {
		return nil, err
	}
	packages, err := s.buildPackages(ctx, companyID, quoteID, req.Packages, vatRate, now)
	if err != nil {
		return nil, err
	}

	token, err := newPublicToken()
	if err != nil {
		return nil, err
	}

	totals := calc.Compute(linesFor(items), stateFor(items, modes), vatRate)

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "manual"
	}

	var created *quotedomain.Quote
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := s.repo.NextSeq(ctx, tx, companyID)
		if err != nil {
			return err
		}
		quoteNumber, err := format.FormatQuoteNumber(format.DefaultQuoteNumberTemplate, now, seq)
		if err != nil {
			return err
		}

		quote := &quotedomain.Quote{
			ID:               quoteID,
			CompanyID:        companyID,
			Seq:              seq,
			QuoteNumber:      quoteNumber,
			CustomerName:     req.CustomerName,
			ProjectName:      trimPtr(req.ProjectName),
			ProfileID:        profileID,
			Currency:         currency,
			Status:           quotedomain.QuoteStatusDraft,
			PublicToken:      token,
			OptionGroupModes: modes,
			Subtotal:         totals.Subtotal,
			VAT:              totals.VAT,
			Total:            totals.Total,
			CreatedBy:        userID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.repo.Insert(ctx, tx, quote); err != nil {
			return err
		}
		if err := s.repo.InsertItems(ctx, tx, items); err != nil {
			return err
		}
		for _, pkg := range packages {
			if err := s.repo.InsertPackage(ctx, tx, pkg); err != nil {
				return err
			}
		}
		if err := s.repo.InsertEvent(ctx, tx, &quotedomain.QuoteEvent{
			ID:        s.genID.Generate(),
			QuoteID:   quoteID,
			Type:      quotedomain.EventCreated,
			Meta:      datatypes.JSONMap{"source": source},
			CreatedAt: now,
		}); err != nil {
			return err
		}

		created = quote
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quote created",
		zap.String("quote_id", created.ID.String()),
		zap.String("quote_number", created.QuoteNumber),
		zap.String("source", source),
	)
	metricspush.RecordQuoteCreated(companyID.String(), source)

	return s.toResponse(created, items, packages), nil
}

func (s *Service) Update(ctx context.Context, req quotedomain.UpdateQuoteRequest) (*quotedomain.QuoteResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	userID, _ := companyctx.UserIDFromContext(ctx)

	quoteID, err := parseID(req.ID)
	if err != nil {
		return nil, quotedomain.ErrInvalidQuote
	}

	quote, err := s.repo.FindByID(ctx, s.db, companyID, quoteID)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, quotedomain.ErrQuoteNotFound
	}
	if !isEditable(quote.Status) {
		return nil, quotedomain.ErrQuoteNotEditable
	}

	modes := quote.OptionGroupModes
	if req.OptionGroupModes != nil {
		modes, err = normalizeModes(req.OptionGroupModes)
		if err != nil {
			return nil, err
		}
	}

	vatRate, err := s.vatRateFor(ctx, companyID, quote.ProfileID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	fields := map[string]any{
		"option_group_modes": modes,
		"updated_at":         now,
	}
	if req.CustomerName != nil {
		name := strings.TrimSpace(*req.CustomerName)
		if name == "" {
			return nil, quotedomain.ErrInvalidCustomer
		}
		fields["customer_name"] = name
	}
	if req.ProjectName != nil {
		fields["project_name"] = trimPtr(req.ProjectName)
	}

	items, err := s.repo.ListItems(ctx, s.db, quoteID)
	if err != nil {
		return nil, err
	}

	var (
		newItems    []*quotedomain.QuoteItem
		adjustments []qtyAdjustment
	)
	if req.Items != nil {
		if len(req.Items) == 0 {
			return nil, quotedomain.ErrInvalidItem
		}
		newItems, err = s.buildItems(ctx, companyID, quoteID, req.Items, now)
		if err != nil {
			return nil, err
		}
		adjustments = diffQuantities(items, newItems)

		totals := calc.Compute(linesFor(newItems), stateFor(newItems, modes), vatRate)
		fields["subtotal"] = totals.Subtotal
		fields["vat"] = totals.VAT
		fields["total"] = totals.Total
	} else {
		current := itemPtrs(items)
		totals := calc.Compute(linesFor(current), stateFor(current, modes), vatRate)
		fields["subtotal"] = totals.Subtotal
		fields["vat"] = totals.VAT
		fields["total"] = totals.Total
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if newItems != nil {
			if err := s.repo.DeleteItems(ctx, tx, quoteID); err != nil {
				return err
			}
			if err := s.repo.InsertItems(ctx, tx, newItems); err != nil {
				return err
			}
		}
		return s.repo.UpdateFields(ctx, tx, quoteID, fields)
	})
	if err != nil {
		return nil, err
	}

	for _, adj := range adjustments {
		logReq := tuningdomain.LogAdjustmentRequest{
			QuoteID:           quoteID,
			CompanyID:         companyID,
			UserID:            userID,
			ItemRef:           adj.ref,
			ItemKind:          string(adj.kind),
			OriginalQty:       adj.originalQty,
			AdjustedQty:       adj.adjustedQty,
			OriginalUnitPrice: adj.originalUnitPrice,
			AdjustedUnitPrice: adj.adjustedUnitPrice,
			Reason:            req.Reason,
		}
		if err := s.tuningSvc.LogAdjustment(ctx, logReq); err != nil {
			s.log.Warn("tuning adjustment not recorded",
				zap.String("quote_id", quoteID.String()),
				zap.String("item_ref", adj.ref),
				zap.Error(err),
			)
		}
	}

	return s.Get(ctx, quoteID.String())
}

func (s *Service) List(ctx context.Context, req quotedomain.ListQuotesRequest) (*quotedomain.ListQuotesResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	filter := &quotedomain.Quote{CompanyID: companyID}
	if req.Status != nil {
		filter.Status = *req.Status
	}

	pageSize := req.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageSize > 250 {
		pageSize = 250
	}

	options := []option.QueryOption{
		option.WithSortBy(option.WithQuerySortBy("", "", map[string]bool{"created_at": true})),
		option.ApplyPagination(pagination.Pagination{PageToken: req.Pagination.PageToken, PageSize: pageSize}),
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		options = append(options, option.WithSearch(search, "customer_name", "project_name", "quote_number"))
	}

	rows, err := s.quoterepo.Find(ctx, filter, options...)
	if err != nil {
		return nil, err
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, int32(pageSize), func(q *quotedomain.Quote) string {
		return pagination.CursorFor(q.CreatedAt, q.ID.String())
	})
	if pageInfo != nil && pageInfo.HasMore && len(rows) > pageSize {
		rows = rows[:pageSize]
	}

	quotes := make([]quotedomain.QuoteSummary, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		quotes = append(quotes, quotedomain.QuoteSummary{
			ID:           row.ID.String(),
			QuoteNumber:  row.QuoteNumber,
			CustomerName: row.CustomerName,
			ProjectName:  row.ProjectName,
			Currency:     row.Currency,
			Status:       row.Status,
			Total:        row.Total,
			CreatedAt:    row.CreatedAt,
		})
	}

	return &quotedomain.ListQuotesResponse{Quotes: quotes, PageInfo: pageInfo}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*quotedomain.QuoteResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	quoteID, err := parseID(id)
	if err != nil {
		return nil, quotedomain.ErrInvalidQuote
	}

	quote, err := s.repo.FindByID(ctx, s.db, companyID, quoteID)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, quotedomain.ErrQuoteNotFound
	}

	items, err := s.repo.ListItems(ctx, s.db, quoteID)
	if err != nil {
		return nil, err
	}
	packages, err := s.repo.ListPackages(ctx, s.db, quoteID)
	if err != nil {
		return nil, err
	}

	return s.toResponse(quote, itemPtrs(items), packagePtrs(packages)), nil
}

func (s *Service) Send(ctx context.Context, req quotedomain.SendQuoteRequest) (*quotedomain.SendQuoteResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	quoteID, err := parseID(req.ID)
	if err != nil {
		return nil, quotedomain.ErrInvalidQuote
	}
	toEmail, err := normalizeEmail(req.ToEmail)
	if err != nil {
		return nil, quotedomain.ErrInvalidRecipient
	}

	quote, err := s.repo.FindByID(ctx, s.db, companyID, quoteID)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, quotedomain.ErrQuoteNotFound
	}
	if !isEditable(quote.Status) {
		return nil, quotedomain.ErrQuoteNotEditable
	}

	now := time.Now().UTC()
	meta := datatypes.JSONMap{"to_email": toEmail}
	if msg := strings.TrimSpace(req.Message); msg != "" {
		meta["message"] = msg
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateFields(ctx, tx, quoteID, map[string]any{
			"status":     quotedomain.QuoteStatusSent,
			"updated_at": now,
		}); err != nil {
			return err
		}
		return s.repo.InsertEvent(ctx, tx, &quotedomain.QuoteEvent{
			ID:        s.genID.Generate(),
			QuoteID:   quoteID,
			Type:      quotedomain.EventSent,
			Meta:      meta,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	publicURL := s.cfg.PublicBaseURL + "/public/quotes/" + quote.PublicToken
	s.sendQuoteEmail(ctx, companyID, quote, toEmail, strings.TrimSpace(req.Message), publicURL)

	s.log.Info("quote sent",
		zap.String("quote_id", quoteID.String()),
		zap.String("quote_number", quote.QuoteNumber),
	)
	metricspush.RecordQuoteSent(companyID.String())

	return &quotedomain.SendQuoteResponse{
		Message:   "Quote sent successfully",
		Status:    quotedomain.QuoteStatusSent,
		PublicURL: publicURL,
	}, nil
}

func (s *Service) Events(ctx context.Context, quoteID string) ([]quotedomain.EventResponse, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	id, err := parseID(quoteID)
	if err != nil {
		return nil, quotedomain.ErrInvalidQuote
	}

	quote, err := s.repo.FindByID(ctx, s.db, companyID, id)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, quotedomain.ErrQuoteNotFound
	}

	events, err := s.repo.ListEvents(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	out := make([]quotedomain.EventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, quotedomain.EventResponse{
			ID:        event.ID.String(),
			Type:      event.Type,
			Meta:      map[string]any(event.Meta),
			CreatedAt: event.CreatedAt,
		})
	}
	return out, nil
}

func (s *Service) ExportPDF(ctx context.Context, id string) (*quotedomain.PDFExport, error) {
	companyID, err := s.companyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	quoteID, err := parseID(id)
	if err != nil {
		return nil, quotedomain.ErrInvalidQuote
	}

	quote, err := s.repo.FindByID(ctx, s.db, companyID, quoteID)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, quotedomain.ErrQuoteNotFound
	}

	items, err := s.repo.ListItems(ctx, s.db, quoteID)
	if err != nil {
		return nil, err
	}

	vatRate, err := s.vatRateFor(ctx, companyID, quote.ProfileID)
	if err != nil {
		return nil, err
	}

	data := s.buildPDFData(ctx, companyID, quote, items, vatRate)
	reader, err := s.pdf.GenerateQuote(ctx, data)
	if err != nil {
		return nil, err
	}
	doc, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	idStr := quote.ID.String()
	if len(idStr) > 8 {
		idStr = idStr[:8]
	}

	return &quotedomain.PDFExport{
		Filename:    fmt.Sprintf("quote_%s.pdf", idStr),
		ContentType: "application/pdf",
		Data:        doc,
	}, nil
}

// sendQuoteEmail is best effort. The quote is already marked sent and
// the public link stays valid, so a mail outage must not fail the
// request.
func (s *Service) sendQuoteEmail(ctx context.Context, companyID snowflake.ID, quote *quotedomain.Quote, toEmail, message, publicURL string) {
	data := map[string]interface{}{
		"customer_name": quote.CustomerName,
		"public_url":    publicURL,
	}
	if quote.ProjectName != nil {
		data["project_name"] = *quote.ProjectName
	}
	if message != "" {
		data["message"] = message
	}
	if company, err := s.companySvc.GetByID(ctx, companydomain.GetCompanyRequest{ID: companyID.String()}); err == nil {
		data["company_name"] = company.Name
	}

	if err := s.email.SendTemplate(ctx, []string{toEmail}, "quote_sent", data); err != nil {
		s.log.Warn("quote email not delivered",
			zap.String("quote_id", quote.ID.String()),
			zap.String("to_email", toEmail),
			zap.Error(err),
		)
	}
}

func (s *Service) buildPDFData(ctx context.Context, companyID snowflake.ID, quote *quotedomain.Quote, items []quotedomain.QuoteItem, vatRate decimal.Decimal) pdf.QuoteData {
	data := pdf.QuoteData{
		QuoteNumber:  quote.QuoteNumber,
		CustomerName: quote.CustomerName,
		Currency:     quote.Currency,
		CreatedDate:  quote.CreatedAt.Format("2006-01-02"),
		VATRateLabel: vatRate.StringFixed(0),
	}
	if quote.ProjectName != nil {
		data.ProjectName = *quote.ProjectName
	}
	if company, err := s.companySvc.GetByID(ctx, companydomain.GetCompanyRequest{ID: companyID.String()}); err == nil {
		data.CompanyName = company.Name
	}

	for _, item := range items {
		line := pdf.QuoteLine{
			Qty:       item.Qty.String(),
			UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: calc.LineTotal(item.Qty, item.UnitPrice).StringFixed(2),
		}
		if item.Description != nil {
			line.Description = *item.Description
		}
		if item.Ref != nil {
			line.Ref = *item.Ref
		}
		if item.Unit != nil {
			line.Unit = *item.Unit
		}
		if !item.IsOptional {
			data.MandatoryItems = append(data.MandatoryItems, line)
		} else if item.IsSelected {
			data.SelectedItems = append(data.SelectedItems, line)
		}
	}

	current := itemPtrs(items)
	totals := calc.Compute(linesFor(current), stateFor(current, quote.OptionGroupModes), vatRate)
	data.BaseSubtotal = totals.BaseSubtotal.StringFixed(2)
	data.OptionalSubtotal = totals.OptionalSubtotal.StringFixed(2)
	data.Subtotal = totals.Subtotal.StringFixed(2)
	data.VAT = totals.VAT.StringFixed(2)
	data.Total = totals.Total.StringFixed(2)

	return data
}

type resolvedLine struct {
	ref         *string
	description *string
	unit        *string
	unitPrice   decimal.Decimal
}

// priceLine resolves a line against the catalog. Referenced labor and
// material lines take the catalog price so quotes cannot drift from
// the current rates; the request price is the fallback for refs the
// catalog does not know. Custom lines always price from the request.
func (s *Service) priceLine(ctx context.Context, companyID snowflake.ID, input quotedomain.ItemInput) (resolvedLine, error) {
	if !quotedomain.ValidKind(input.Kind) {
		return resolvedLine{}, quotedomain.ErrInvalidItem
	}
	if input.Qty.Sign() <= 0 {
		return resolvedLine{}, quotedomain.ErrInvalidItem
	}
	if input.UnitPrice != nil && input.UnitPrice.Sign() < 0 {
		return resolvedLine{}, quotedomain.ErrInvalidItem
	}

	out := resolvedLine{
		ref:         trimPtr(input.Ref),
		description: trimPtr(input.Description),
		unit:        trimPtr(input.Unit),
	}

	var price *pricingdomain.LinePrice
	if out.ref != nil && input.Kind != quotedomain.ItemKindCustom {
		var err error
		switch input.Kind {
		case quotedomain.ItemKindLabor:
			price, err = s.pricingSvc.PriceLabor(ctx, companyID.Int64(), *out.ref)
		case quotedomain.ItemKindMaterial:
			price, err = s.pricingSvc.PriceMaterial(ctx, companyID.Int64(), *out.ref)
		}
		if err != nil && !errors.Is(err, pricingdomain.ErrNotFound) {
			return resolvedLine{}, err
		}
	}

	switch {
	case price != nil:
		out.unitPrice = price.UnitPrice
		if out.description == nil && price.Description != "" {
			desc := price.Description
			out.description = &desc
		}
		if out.unit == nil && price.Unit != "" {
			unit := price.Unit
			out.unit = &unit
		}
	case input.UnitPrice != nil:
		out.unitPrice = *input.UnitPrice
	default:
		return resolvedLine{}, quotedomain.ErrInvalidItem
	}

	return out, nil
}

func (s *Service) buildItems(ctx context.Context, companyID, quoteID snowflake.ID, inputs []quotedomain.ItemInput, now time.Time) ([]*quotedomain.QuoteItem, error) {
	items := make([]*quotedomain.QuoteItem, 0, len(inputs))
	for idx, input := range inputs {
		resolved, err := s.priceLine(ctx, companyID, input)
		if err != nil {
			return nil, err
		}
		items = append(items, &quotedomain.QuoteItem{
			ID:          s.genID.Generate(),
			QuoteID:     quoteID,
			Kind:        input.Kind,
			Ref:         resolved.ref,
			Description: resolved.description,
			Qty:         input.Qty,
			Unit:        resolved.unit,
			UnitPrice:   resolved.unitPrice,
			LineTotal:   calc.LineTotal(input.Qty, resolved.unitPrice),
			IsOptional:  input.IsOptional,
			OptionGroup: trimPtr(input.OptionGroup),
			IsSelected:  input.IsOptional && input.IsSelected,
			Sort:        idx,
			CreatedAt:   now,
		})
	}
	return items, nil
}

// buildPackages snapshots each package's lines as JSON. A package is
// priced as a whole bundle, so optionality flags on its lines do not
// reduce the package totals.
func (s *Service) buildPackages(ctx context.Context, companyID, quoteID snowflake.ID, inputs []quotedomain.PackageInput, vatRate decimal.Decimal, now time.Time) ([]*quotedomain.QuotePackage, error) {
	packages := make([]*quotedomain.QuotePackage, 0, len(inputs))
	for _, input := range inputs {
		name := strings.TrimSpace(input.Name)
		if name == "" || len(input.Items) == 0 {
			return nil, quotedomain.ErrInvalidPackage
		}

		snapshot := make([]quotedomain.PackageItem, 0, len(input.Items))
		lines := make([]calc.Line, 0, len(input.Items))
		for _, itemInput := range input.Items {
			resolved, err := s.priceLine(ctx, companyID, itemInput)
			if err != nil {
				return nil, err
			}
			item := quotedomain.PackageItem{
				Kind:      itemInput.Kind,
				Qty:       itemInput.Qty,
				UnitPrice: resolved.unitPrice,
				LineTotal: calc.LineTotal(itemInput.Qty, resolved.unitPrice),
			}
			if resolved.ref != nil {
				item.Ref = *resolved.ref
			}
			if resolved.description != nil {
				item.Description = *resolved.description
			}
			if resolved.unit != nil {
				item.Unit = *resolved.unit
			}
			snapshot = append(snapshot, item)
			lines = append(lines, calc.Line{Qty: itemInput.Qty, UnitPrice: resolved.unitPrice})
		}

		raw, err := json.Marshal(snapshot)
		if err != nil {
			return nil, err
		}

		totals := calc.Compute(lines, nil, vatRate)
		packages = append(packages, &quotedomain.QuotePackage{
			ID:        s.genID.Generate(),
			QuoteID:   quoteID,
			Name:      name,
			Items:     datatypes.JSON(raw),
			Subtotal:  totals.Subtotal,
			VAT:       totals.VAT,
			Total:     totals.Total,
			IsDefault: input.IsDefault,
			CreatedAt: now,
		})
	}
	return packages, nil
}

func (s *Service) toResponse(quote *quotedomain.Quote, items []*quotedomain.QuoteItem, packages []*quotedomain.QuotePackage) *quotedomain.QuoteResponse {
	resp := &quotedomain.QuoteResponse{
		ID:               quote.ID.String(),
		QuoteNumber:      quote.QuoteNumber,
		CustomerName:     quote.CustomerName,
		ProjectName:      quote.ProjectName,
		Currency:         quote.Currency,
		Status:           quote.Status,
		PublicToken:      quote.PublicToken,
		OptionGroupModes: modeStrings(quote.OptionGroupModes),
		Subtotal:         quote.Subtotal,
		VAT:              quote.VAT,
		Total:            quote.Total,
		Items:            make([]quotedomain.ItemResponse, 0, len(items)),
		Packages:         make([]quotedomain.PackageResponse, 0, len(packages)),
		CreatedAt:        quote.CreatedAt,
		UpdatedAt:        quote.UpdatedAt,
	}
	if quote.ProfileID != nil {
		profileID := quote.ProfileID.String()
		resp.ProfileID = &profileID
	}
	if quote.AcceptedPackageID != nil {
		acceptedID := quote.AcceptedPackageID.String()
		resp.AcceptedPackageID = &acceptedID
	}

	for _, item := range items {
		lineTotal := calc.LineTotal(item.Qty, item.UnitPrice)
		resp.Items = append(resp.Items, quotedomain.ItemResponse{
			ID:          item.ID.String(),
			Kind:        item.Kind,
			Ref:         item.Ref,
			Description: item.Description,
			Qty:         item.Qty,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
			LineTotal:   lineTotal,
			IsOptional:  item.IsOptional,
			OptionGroup: item.OptionGroup,
			IsSelected:  !item.IsOptional || item.IsSelected,
		})
		if !item.IsOptional {
			resp.BaseSubtotal = resp.BaseSubtotal.Add(lineTotal)
		} else if item.IsSelected {
			resp.OptionalSubtotal = resp.OptionalSubtotal.Add(lineTotal)
		}
	}

	for _, pkg := range packages {
		pkgResp := quotedomain.PackageResponse{
			ID:        pkg.ID.String(),
			Name:      pkg.Name,
			Subtotal:  pkg.Subtotal,
			VAT:       pkg.VAT,
			Total:     pkg.Total,
			IsDefault: pkg.IsDefault,
		}
		if len(pkg.Items) > 0 {
			if err := json.Unmarshal(pkg.Items, &pkgResp.Items); err != nil {
				s.log.Warn("package snapshot unreadable",
					zap.String("package_id", pkg.ID.String()),
					zap.Error(err),
				)
			}
		}
		resp.Packages = append(resp.Packages, pkgResp)
	}

	return resp
}

// resolveProfile loads the price profile for a new quote. An explicit
// profile ID must exist; an empty one means the company default, and a
// company without profiles prices at the VAT fallback.
func (s *Service) resolveProfile(ctx context.Context, companyID snowflake.ID, profileID *string) (*pricingdomain.ProfileResponse, *snowflake.ID, error) {
	requested := ""
	if profileID != nil {
		requested = strings.TrimSpace(*profileID)
	}

	profile, err := s.pricingSvc.ResolveProfile(ctx, companyID.Int64(), requested)
	if err != nil {
		if requested == "" && errors.Is(err, pricingdomain.ErrNotFound) {
			return nil, nil, nil
		}
		if errors.Is(err, pricingdomain.ErrNotFound) || errors.Is(err, pricingdomain.ErrInvalidID) {
			return nil, nil, quotedomain.ErrProfileNotFound
		}
		return nil, nil, err
	}

	parsed, err := parseID(profile.ID)
	if err != nil {
		return nil, nil, err
	}
	return profile, &parsed, nil
}

func (s *Service) vatRateFor(ctx context.Context, companyID snowflake.ID, profileID *snowflake.ID) (decimal.Decimal, error) {
	requested := ""
	if profileID != nil {
		requested = profileID.String()
	}
	profile, err := s.pricingSvc.ResolveProfile(ctx, companyID.Int64(), requested)
	if err != nil {
		if errors.Is(err, pricingdomain.ErrNotFound) {
			return fallbackVATRate, nil
		}
		return decimal.Decimal{}, err
	}
	return profile.VATRate, nil
}

func (s *Service) companyIDFromContext(ctx context.Context) (snowflake.ID, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return 0, quotedomain.ErrInvalidCompany
	}
	return companyID, nil
}

type qtyAdjustment struct {
	ref               string
	kind              quotedomain.ItemKind
	originalQty       decimal.Decimal
	adjustedQty       decimal.Decimal
	originalUnitPrice decimal.Decimal
	adjustedUnitPrice decimal.Decimal
}

// diffQuantities pairs old and new lines by ref and reports quantity
// changes. Lines without a ref carry no catalog identity, so there is
// nothing for the tuning loop to learn from them.
func diffQuantities(oldItems []quotedomain.QuoteItem, newItems []*quotedomain.QuoteItem) []qtyAdjustment {
	byRef := make(map[string]quotedomain.QuoteItem, len(oldItems))
	for _, item := range oldItems {
		if item.Ref == nil || *item.Ref == "" {
			continue
		}
		byRef[*item.Ref] = item
	}

	var out []qtyAdjustment
	for _, item := range newItems {
		if item.Ref == nil || *item.Ref == "" {
			continue
		}
		old, ok := byRef[*item.Ref]
		if !ok || old.Qty.Equal(item.Qty) {
			continue
		}
		out = append(out, qtyAdjustment{
			ref:               *item.Ref,
			kind:              item.Kind,
			originalQty:       old.Qty,
			adjustedQty:       item.Qty,
			originalUnitPrice: old.UnitPrice,
			adjustedUnitPrice: item.UnitPrice,
		})
	}
	return out
}

func isEditable(status quotedomain.QuoteStatus) bool {
	switch status {
	case quotedomain.QuoteStatusDraft, quotedomain.QuoteStatusSent:
		return true
	}
	return false
}

func normalizeModes(modes map[string]string) (datatypes.JSONMap, error) {
	out := datatypes.JSONMap{}
	for group, mode := range modes {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		switch selection.Mode(mode) {
		case selection.ModeSingle, selection.ModeMulti:
			out[group] = mode
		default:
			return nil, quotedomain.ErrInvalidQuote
		}
	}
	return out, nil
}

func modeStrings(modes datatypes.JSONMap) map[string]string {
	out := make(map[string]string, len(modes))
	for group, mode := range modes {
		if str, ok := mode.(string); ok {
			out[group] = str
		}
	}
	return out
}

func selectionModes(modes datatypes.JSONMap) map[string]selection.Mode {
	out := make(map[string]selection.Mode, len(modes))
	for group, mode := range modes {
		if str, ok := mode.(string); ok {
			out[group] = selection.Mode(str)
		}
	}
	return out
}

func linesFor(items []*quotedomain.QuoteItem) []calc.Line {
	lines := make([]calc.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, calc.Line{
			ID:        item.ID.String(),
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
			Optional:  item.IsOptional,
		})
	}
	return lines
}

// stateFor rebuilds the selection model from persisted lines, so the
// same arithmetic serves staff pricing and the public preview.
func stateFor(items []*quotedomain.QuoteItem, modes datatypes.JSONMap) *selection.State {
	selItems := make([]selection.Item, 0, len(items))
	var selected []string
	for _, item := range items {
		group := ""
		if item.OptionGroup != nil {
			group = *item.OptionGroup
		}
		selItems = append(selItems, selection.Item{
			ID:       item.ID.String(),
			Optional: item.IsOptional,
			Group:    group,
		})
		if item.IsOptional && item.IsSelected {
			selected = append(selected, item.ID.String())
		}
	}

	state := selection.NewState(selItems, selectionModes(modes))
	state.ReplaceFrom(selected)
	return state
}

func itemPtrs(items []quotedomain.QuoteItem) []*quotedomain.QuoteItem {
	out := make([]*quotedomain.QuoteItem, 0, len(items))
	for i := range items {
		out = append(out, &items[i])
	}
	return out
}

func packagePtrs(packages []quotedomain.QuotePackage) []*quotedomain.QuotePackage {
	out := make([]*quotedomain.QuotePackage, 0, len(packages))
	for i := range packages {
		out = append(out, &packages[i])
	}
	return out
}

func newPublicToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(addr.Address), nil
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
