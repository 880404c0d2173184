package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/opencivic/caseflow/internal/domain"
)

const tracerName = "github.com/opencivic/caseflow/internal/adapter/otel"

// TracingRepository wraps a domain.CaseRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingRepository struct {
	next   domain.CaseRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.CaseRepository.
var _ domain.CaseRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.CaseRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, c domain.Case) error {
	ctx, span := r.tracer.Start(ctx, "CaseRepository.Create",
		trace.WithAttributes(
			attribute.String("case.id", c.ID),
			attribute.String("case.number", c.CaseNumber),
			attribute.String("case.type", string(c.Type)),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, c)
	recordError(span, err)
	return err
}

func (r *TracingRepository) GetByID(ctx context.Context, id string) (domain.Case, error) {
	ctx, span := r.tracer.Start(ctx, "CaseRepository.GetByID",
		trace.WithAttributes(attribute.String("case.id", id)),
	)
	defer span.End()

	c, err := r.next.GetByID(ctx, id)
	recordError(span, err)
	return c, err
}

func (r *TracingRepository) List(ctx context.Context, filter domain.CaseFilter) ([]domain.Case, error) {
	ctx, span := r.tracer.Start(ctx, "CaseRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}
	if filter.Type != nil {
		span.SetAttributes(attribute.String("filter.case_type", string(*filter.Type)))
	}

	cases, err := r.next.List(ctx, filter)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(cases)))
	}
	return cases, err
}

func (r *TracingRepository) UpdateIfUnchanged(ctx context.Context, c domain.Case, expectedVersion int64) error {
	ctx, span := r.tracer.Start(ctx, "CaseRepository.UpdateIfUnchanged",
		trace.WithAttributes(
			attribute.String("case.id", c.ID),
			attribute.String("case.status", string(c.Status)),
			attribute.Int64("case.expected_version", expectedVersion),
		),
	)
	defer span.End()

	err := r.next.UpdateIfUnchanged(ctx, c, expectedVersion)
	recordError(span, err)
	return err
}

func (r *TracingRepository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	ctx, span := r.tracer.Start(ctx, "CaseRepository.CountByStatus")
	defer span.End()

	counts, err := r.next.CountByStatus(ctx)
	recordError(span, err)
	return counts, err
}

func (r *TracingRepository) CountByType(ctx context.Context) (map[domain.CaseType]int, error) {
	ctx, span := r.tracer.Start(ctx, "CaseRepository.CountByType")
	defer span.End()

	counts, err := r.next.CountByType(ctx)
	recordError(span, err)
	return counts, err
}

func (r *TracingRepository) CountAssignedTo(ctx context.Context, userID string) (int, error) {
	ctx, span := r.tracer.Start(ctx, "CaseRepository.CountAssignedTo",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	count, err := r.next.CountAssignedTo(ctx, userID)
	recordError(span, err)
	return count, err
}

func (r *TracingRepository) CountByTypeInYear(ctx context.Context, t domain.CaseType, year int) (int, error) {
	ctx, span := r.tracer.Start(ctx, "CaseRepository.CountByTypeInYear",
		trace.WithAttributes(
			attribute.String("case.type", string(t)),
			attribute.Int("year", year),
		),
	)
	defer span.End()

	count, err := r.next.CountByTypeInYear(ctx, t, year)
	recordError(span, err)
	return count, err
}

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
