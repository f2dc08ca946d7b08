package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/metricspush"
	"github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/calc"
	pricingdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/pricing/domain"
	publicquotedomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/publicquote/domain"
	quotedomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/quote/domain"
	"github.com/Calle9610/smart-offertgenerator-sub001/pkg/selection"
)

var fallbackVATRate = decimal.RequireFromString("25.00")

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node

	Repo       publicquotedomain.Repository
	QuoteRepo  quotedomain.Repository
	PricingSvc pricingdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	repo       publicquotedomain.Repository
	quoteRepo  quotedomain.Repository
	pricingSvc pricingdomain.Service
}

func New(p Params) publicquotedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("publicquote.service"),
		genID: p.GenID,

		repo:       p.Repo,
		quoteRepo:  p.QuoteRepo,
		pricingSvc: p.PricingSvc,
	}
}

func (s *Service) GetByToken(ctx context.Context, token string) (*publicquotedomain.PublicQuoteResponse, error) {
	row, err := s.loadPublicQuote(ctx, token)
	if err != nil {
		return nil, err
	}

	items, err := s.quoteRepo.ListItems(ctx, s.db, row.ID)
	if err != nil {
		return nil, err
	}
	packages, err := s.quoteRepo.ListPackages(ctx, s.db, row.ID)
	if err != nil {
		return nil, err
	}

	s.recordOpened(ctx, row.ID)
	metricspush.RecordPublicView(row.CompanyID.String())

	return s.buildPublicQuoteView(row, items, packages), nil
}

func (s *Service) UpdateSelection(ctx context.Context, token string, req publicquotedomain.UpdateSelectionRequest) (*publicquotedomain.SelectionResponse, error) {
	row, err := s.loadPublicQuote(ctx, token)
	if err != nil {
		return nil, err
	}
	if row.Status != quotedomain.QuoteStatusSent {
		return nil, publicquotedomain.ErrQuoteFinalized
	}

	items, err := s.quoteRepo.ListItems(ctx, s.db, row.ID)
	if err != nil {
		return nil, err
	}

	state := buildState(items, row.OptionGroupModes)
	previousSelected := state.SelectedIDs()
	if err := state.ValidateSelectable(req.SelectedItemIDs); err != nil {
		if errors.Is(err, selection.ErrUnknownItem) {
			return nil, publicquotedomain.ErrUnknownItem
		}
		return nil, err
	}
	state.ReplaceFrom(req.SelectedItemIDs)

	selectedIDs := state.SelectedIDs()
	parsedIDs, err := parseItemIDs(selectedIDs)
	if err != nil {
		return nil, publicquotedomain.ErrUnknownItem
	}

	vatRate := s.vatRateFor(ctx, row)
	totals := calc.Compute(linesFor(items), state, vatRate)
	added, removed := diffSelection(previousSelected, selectedIDs)

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The status guard makes a concurrent accept or decline win:
		// once the quote leaves sent, no selection can reprice it.
		res := tx.Exec(
			`UPDATE quotes SET subtotal = ?, vat = ?, total = ?, updated_at = ? WHERE id = ? AND status = ?`,
			totals.Subtotal, totals.VAT, totals.Total, now, row.ID, quotedomain.QuoteStatusSent,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return publicquotedomain.ErrQuoteFinalized
		}

		if err := s.quoteRepo.ReplaceSelection(ctx, tx, row.ID, parsedIDs); err != nil {
			return err
		}

		return s.quoteRepo.InsertEvent(ctx, tx, &quotedomain.QuoteEvent{
			ID:      s.genID.Generate(),
			QuoteID: row.ID,
			Type:    quotedomain.EventSelectionUpdated,
			Meta: datatypes.JSONMap{
				"added":                   added,
				"removed":                 removed,
				"total_difference":        totals.Total.Sub(row.Total).StringFixed(2),
				"selected_item_ids":       selectedIDs,
				"selected_item_count":     totals.SelectedItemCount,
				"base_subtotal":           totals.BaseSubtotal.StringFixed(2),
				"optional_subtotal":       totals.OptionalSubtotal.StringFixed(2),
				"previous_selected_count": len(previousSelected),
			},
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("public selection updated",
		zap.String("quote_id", row.ID.String()),
		zap.Int("selected", totals.SelectedItemCount),
	)
	metricspush.RecordSelectionUpdate(row.CompanyID.String())

	return &publicquotedomain.SelectionResponse{
		Items:             publicItems(items, state),
		Subtotal:          totals.Subtotal,
		VAT:               totals.VAT,
		Total:             totals.Total,
		BaseSubtotal:      totals.BaseSubtotal,
		OptionalSubtotal:  totals.OptionalSubtotal,
		SelectedItemCount: totals.SelectedItemCount,
		Message:           "Selection updated successfully",
	}, nil
}

func (s *Service) Accept(ctx context.Context, token string, req publicquotedomain.AcceptRequest) (*publicquotedomain.AcceptResponse, error) {
	row, err := s.loadPublicQuote(ctx, token)
	if err != nil {
		return nil, err
	}

	requestedID := strings.TrimSpace(req.PackageID)
	switch row.Status {
	case quotedomain.QuoteStatusAccepted:
		return s.repeatedAccept(ctx, row, requestedID)
	case quotedomain.QuoteStatusDeclined:
		return nil, publicquotedomain.ErrQuoteFinalized
	}

	var pkg *quotedomain.QuotePackage
	if requestedID != "" {
		pkg, err = s.findPackage(ctx, row.ID, requestedID)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var res *gorm.DB
		if pkg != nil {
			// Accepting a package freezes its snapshot pricing on the
			// quote, replacing whatever the line selection added up to.
			res = tx.Exec(
				`UPDATE quotes SET status = ?, accepted_package_id = ?, subtotal = ?, vat = ?, total = ?, updated_at = ? WHERE id = ? AND status = ?`,
				quotedomain.QuoteStatusAccepted, pkg.ID, pkg.Subtotal, pkg.VAT, pkg.Total, now, row.ID, quotedomain.QuoteStatusSent,
			)
		} else {
			res = tx.Exec(
				`UPDATE quotes SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
				quotedomain.QuoteStatusAccepted, now, row.ID, quotedomain.QuoteStatusSent,
			)
		}
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return publicquotedomain.ErrAlreadyAccepted
		}

		meta := datatypes.JSONMap{}
		if pkg != nil {
			meta["package_id"] = pkg.ID.String()
			meta["package_name"] = pkg.Name
			meta["total"] = pkg.Total.StringFixed(2)
		} else {
			meta["total"] = row.Total.StringFixed(2)
		}
		return s.quoteRepo.InsertEvent(ctx, tx, &quotedomain.QuoteEvent{
			ID:        s.genID.Generate(),
			QuoteID:   row.ID,
			Type:      quotedomain.EventAccepted,
			Meta:      meta,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quote accepted",
		zap.String("quote_id", row.ID.String()),
		zap.String("package_id", requestedID),
	)
	via := "selection"
	if pkg != nil {
		via = "package"
	}
	metricspush.RecordQuoteAccepted(row.CompanyID.String(), via)

	resp := &publicquotedomain.AcceptResponse{
		Message: "Quote accepted successfully",
		Status:  quotedomain.QuoteStatusAccepted,
		QuoteID: row.ID.String(),
	}
	if pkg != nil {
		resp.PackageID = pkg.ID.String()
		resp.PackageName = pkg.Name
	}
	return resp, nil
}

func (s *Service) Decline(ctx context.Context, token string) (*publicquotedomain.DeclineResponse, error) {
	row, err := s.loadPublicQuote(ctx, token)
	if err != nil {
		return nil, err
	}

	switch row.Status {
	case quotedomain.QuoteStatusDeclined:
		return &publicquotedomain.DeclineResponse{Message: "Quote declined successfully"}, nil
	case quotedomain.QuoteStatusAccepted:
		return nil, publicquotedomain.ErrQuoteFinalized
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(
			`UPDATE quotes SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			quotedomain.QuoteStatusDeclined, now, row.ID, quotedomain.QuoteStatusSent,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return publicquotedomain.ErrQuoteFinalized
		}

		return s.quoteRepo.InsertEvent(ctx, tx, &quotedomain.QuoteEvent{
			ID:        s.genID.Generate(),
			QuoteID:   row.ID,
			Type:      quotedomain.EventDeclined,
			Meta:      datatypes.JSONMap{},
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quote declined", zap.String("quote_id", row.ID.String()))
	metricspush.RecordQuoteDeclined(row.CompanyID.String())

	return &publicquotedomain.DeclineResponse{Message: "Quote declined successfully"}, nil
}

// loadPublicQuote resolves a token to a viewable quote. A bad token, a
// missing row and a draft quote all come back as ErrQuoteUnavailable
// so the public surface leaks nothing about what exists.
func (s *Service) loadPublicQuote(ctx context.Context, token string) (*publicquotedomain.QuoteRecord, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, publicquotedomain.ErrQuoteUnavailable
	}

	row, err := s.repo.FindQuoteByToken(ctx, s.db, token)
	if err != nil {
		return nil, err
	}
	if row == nil || !isQuoteViewable(row.Status) {
		return nil, publicquotedomain.ErrQuoteUnavailable
	}
	return row, nil
}

func isQuoteViewable(status quotedomain.QuoteStatus) bool {
	switch status {
	case quotedomain.QuoteStatusSent, quotedomain.QuoteStatusAccepted, quotedomain.QuoteStatusDeclined:
		return true
	}
	return false
}

// recordOpened logs the first customer view. Two concurrent first
// views can both pass the check and write two events; the timeline
// tolerates that, so no lock is taken.
func (s *Service) recordOpened(ctx context.Context, quoteID snowflake.ID) {
	seen, err := s.quoteRepo.HasEvent(ctx, s.db, quoteID, quotedomain.EventOpened)
	if err != nil {
		s.log.Warn("opened event check failed", zap.String("quote_id", quoteID.String()), zap.Error(err))
		return
	}
	if seen {
		return
	}

	event := &quotedomain.QuoteEvent{
		ID:        s.genID.Generate(),
		QuoteID:   quoteID,
		Type:      quotedomain.EventOpened,
		Meta:      datatypes.JSONMap{},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.quoteRepo.InsertEvent(ctx, s.db, event); err != nil {
		s.log.Warn("opened event not recorded", zap.String("quote_id", quoteID.String()), zap.Error(err))
	}
}

// repeatedAccept handles accepts on an already accepted quote. The
// same choice again is answered as a success so customers can retry a
// timed-out accept; a different choice conflicts.
func (s *Service) repeatedAccept(ctx context.Context, row *publicquotedomain.QuoteRecord, requestedID string) (*publicquotedomain.AcceptResponse, error) {
	currentID := ""
	if row.AcceptedPackageID != nil {
		currentID = row.AcceptedPackageID.String()
	}
	if requestedID != currentID {
		return nil, publicquotedomain.ErrAlreadyAccepted
	}

	resp := &publicquotedomain.AcceptResponse{
		Message: "Quote accepted successfully",
		Status:  quotedomain.QuoteStatusAccepted,
		QuoteID: row.ID.String(),
	}
	if currentID != "" {
		pkg, err := s.findPackage(ctx, row.ID, currentID)
		if err != nil {
			return nil, err
		}
		resp.PackageID = pkg.ID.String()
		resp.PackageName = pkg.Name
	}
	return resp, nil
}

func (s *Service) findPackage(ctx context.Context, quoteID snowflake.ID, packageID string) (*quotedomain.QuotePackage, error) {
	parsed, err := snowflake.ParseString(packageID)
	if err != nil {
		return nil, publicquotedomain.ErrInvalidPackage
	}
	pkg, err := s.quoteRepo.FindPackage(ctx, s.db, quoteID, parsed)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, publicquotedomain.ErrInvalidPackage
	}
	return pkg, nil
}

func (s *Service) vatRateFor(ctx context.Context, row *publicquotedomain.QuoteRecord) decimal.Decimal {
	profileID := ""
	if row.ProfileID != nil {
		profileID = row.ProfileID.String()
	}
	profile, err := s.pricingSvc.ResolveProfile(ctx, row.CompanyID.Int64(), profileID)
	if err != nil {
		if !errors.Is(err, pricingdomain.ErrNotFound) {
			s.log.Warn("price profile lookup failed", zap.String("quote_id", row.ID.String()), zap.Error(err))
		}
		return fallbackVATRate
	}
	return profile.VATRate
}

// buildPublicQuoteView assembles the customer view. Subtotal, VAT and
// total come from the stored row, not a recompute: after a package
// accept they carry the package pricing, which no line selection adds
// up to.
func (s *Service) buildPublicQuoteView(
	row *publicquotedomain.QuoteRecord,
	items []quotedomain.QuoteItem,
	packages []quotedomain.QuotePackage,
) *publicquotedomain.PublicQuoteResponse {
	state := buildState(items, row.OptionGroupModes)

	resp := &publicquotedomain.PublicQuoteResponse{
		ID:                row.ID.String(),
		CompanyName:       row.CompanyName,
		CustomerName:      row.CustomerName,
		ProjectName:       row.ProjectName,
		Currency:          row.Currency,
		Status:            row.Status,
		OptionGroupModes:  modeStrings(row.OptionGroupModes),
		OptionGroups:      state.Groups(),
		Items:             publicItems(items, state),
		Subtotal:          row.Subtotal,
		VAT:               row.VAT,
		Total:             row.Total,
		SelectedItemCount: state.SelectedCount(),
		CreatedAt:         row.CreatedAt,
	}

	for _, item := range items {
		if !item.IsOptional {
			resp.BaseSubtotal = resp.BaseSubtotal.Add(calc.LineTotal(item.Qty, item.UnitPrice))
		} else if state.IsSelected(item.ID.String()) {
			resp.OptionalSubtotal = resp.OptionalSubtotal.Add(calc.LineTotal(item.Qty, item.UnitPrice))
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

	if row.AcceptedPackageID != nil {
		accepted := row.AcceptedPackageID.String()
		resp.AcceptedPackageID = &accepted
	}

	return resp
}

// publicItems renders lines for customers. Unselected optional lines
// show a zero line total so the quote never displays money the
// customer is not currently paying.
func publicItems(items []quotedomain.QuoteItem, state *selection.State) []quotedomain.ItemResponse {
	out := make([]quotedomain.ItemResponse, 0, len(items))
	for _, item := range items {
		selected := state.IsSelected(item.ID.String())
		lineTotal := calc.LineTotal(item.Qty, item.UnitPrice)
		if item.IsOptional && !selected {
			lineTotal = decimal.Zero
		}
		out = append(out, quotedomain.ItemResponse{
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
			IsSelected:  selected,
		})
	}
	return out
}

func buildState(items []quotedomain.QuoteItem, modes datatypes.JSONMap) *selection.State {
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

func linesFor(items []quotedomain.QuoteItem) []calc.Line {
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

func selectionModes(modes datatypes.JSONMap) map[string]selection.Mode {
	out := make(map[string]selection.Mode, len(modes))
	for group, mode := range modes {
		if str, ok := mode.(string); ok {
			out[group] = selection.Mode(str)
		}
	}
	return out
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

func parseItemIDs(ids []string) ([]snowflake.ID, error) {
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		parsed, err := snowflake.ParseString(id)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}

// diffSelection splits a selection change into the IDs that joined and
// the IDs that left. Both inputs are sorted; order carries through.
func diffSelection(previous, next []string) (added, removed []string) {
	prevSet := make(map[string]struct{}, len(previous))
	for _, id := range previous {
		prevSet[id] = struct{}{}
	}
	nextSet := make(map[string]struct{}, len(next))
	for _, id := range next {
		nextSet[id] = struct{}{}
	}

	added = []string{}
	removed = []string{}
	for _, id := range next {
		if _, ok := prevSet[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range previous {
		if _, ok := nextSet[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}
