package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"backoffice/backend/internal/domain"
	"backoffice/backend/internal/export"
	"backoffice/backend/internal/mailer"
	"backoffice/backend/internal/policy"
	"backoffice/backend/internal/reporting"
	"backoffice/backend/internal/store"
)

// ResolvePeriod turns optional bounds into a report period. With neither
// bound it covers the last days days (30 when days < 1). A missing from or
// to is filled from the other bound and the default window.
func (s *Service) ResolvePeriod(from, to *time.Time, days int) (reporting.Period, error) {
	if days < 1 {
		days = reporting.DefaultDays
	}
	var (
		p   reporting.Period
		err error
	)
	switch {
	case from == nil && to == nil:
		p, err = reporting.LastDays(s.now(), days)
	case from == nil:
		p, err = reporting.LastDays(*to, days)
	case to == nil:
		p, err = reporting.NewPeriod(*from, s.now())
	default:
		p, err = reporting.NewPeriod(*from, *to)
	}
	if err != nil {
		return reporting.Period{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	return p, nil
}

func reportKey(p reporting.Period) string {
	return p.From.Format(time.DateOnly) + ":" + p.To.Format(time.DateOnly)
}

// DRE builds the income statement for the period, served from the report
// cache when a fresh copy exists.
func (s *Service) DRE(ctx context.Context, period reporting.Period) (domain.DREReport, error) {
	if _, err := s.authorize(ctx, policy.ResourceReport, policy.ActionView); err != nil {
		return domain.DREReport{}, err
	}
	return s.buildDRE(ctx, period)
}

func (s *Service) buildDRE(ctx context.Context, period reporting.Period) (domain.DREReport, error) {
	key := reportKey(period)
	gen, err := s.cache.Generation(ctx)
	cacheable := err == nil
	if err != nil {
		s.logger.Warn("report cache unavailable", zap.String("key", key), zap.Error(err))
	} else {
		cached, ok, err := s.cache.Get(ctx, gen, key)
		if err != nil {
			s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		}
		if ok && cached != nil {
			return *cached, nil
		}
	}

	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.DREReport{}, err
	}
	expenses, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return domain.DREReport{}, err
	}
	departments, err := s.repo.ListDepartments(ctx)
	if err != nil {
		return domain.DREReport{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.DREReport{}, err
	}

	report := reporting.BuildDRE(reporting.Input{
		Period:      period,
		Sales:       sales,
		Expenses:    expenses,
		Departments: departments,
		Products:    products,
	}, s.rates, s.now())

	if cacheable {
		if err := s.cache.Set(ctx, gen, key, &report, s.cacheTTL); err != nil {
			s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return report, nil
}

// ExportDRE renders the period's report in the requested format.
func (s *Service) ExportDRE(ctx context.Context, period reporting.Period, format export.Format) ([]byte, domain.DREReport, error) {
	if _, err := s.authorize(ctx, policy.ResourceReport, policy.ActionExport); err != nil {
		return nil, domain.DREReport{}, err
	}
	report, err := s.buildDRE(ctx, period)
	if err != nil {
		return nil, domain.DREReport{}, err
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, report); err != nil {
		return nil, domain.DREReport{}, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), report, nil
}

// SendDRE emails the report summary with the PDF attached.
func (s *Service) SendDRE(ctx context.Context, req domain.ReportSendRequest) error {
	if _, err := s.authorize(ctx, policy.ResourceReport, policy.ActionExport); err != nil {
		return err
	}
	req.Email = normalizeEmail(req.Email)
	if err := s.check(req); err != nil {
		return err
	}
	period, err := s.ResolvePeriod(req.From, req.To, 0)
	if err != nil {
		return err
	}
	report, err := s.buildDRE(ctx, period)
	if err != nil {
		return err
	}

	body, err := export.EmailHTML(report)
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	var pdf bytes.Buffer
	if err := export.WritePDF(&pdf, report); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}

	err = s.mailer.Send(ctx, mailer.Message{
		To:          req.Email,
		Subject:     "Relatório Financeiro",
		HTML:        body,
		Attachments: []mailer.Attachment{{Name: export.FormatPDF.Filename(report), Data: pdf.Bytes()}},
	})
	if errors.Is(err, mailer.ErrNotConfigured) {
		return &detailError{kind: ErrUnavailable, msg: "email delivery is not configured"}
	}
	if err != nil {
		return err
	}
	s.logAudit(ctx, "report_send", "report", reportKey(period), zap.String("to", req.Email))
	return nil
}
