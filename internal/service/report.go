package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sxxm/medcheck/backend/config"
	"github.com/sxxm/medcheck/backend/internal/models"
)

// ReportService persists completed analyses
type ReportService struct {
	db       *gorm.DB
	archiver ReportArchiver
	logger   *zap.Logger
}

// NewReportService creates a new ReportService instance. archiver may be nil.
func NewReportService(db *gorm.DB, archiver ReportArchiver, logger *zap.Logger) *ReportService {
	return &ReportService{
		db:       db,
		archiver: archiver,
		logger:   logger,
	}
}

// SaveReport inserts the report and then archives it. Archive failures are only logged.
func (s *ReportService) SaveReport(ctx context.Context, report *models.SideEffectReport) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, report); err != nil {
			s.logger.Warn("failed to archive report", zap.String("report_id", report.ID.String()), zap.Error(err))
		}
	}
	return nil
}

// ListReports returns the user's reports, newest first
func (s *ReportService) ListReports(ctx context.Context, userID uuid.UUID) ([]models.SideEffectReport, error) {
	var reports []models.SideEffectReport
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// S3ReportArchiver writes serialized results to an S3 bucket under reports/<user>/<report>.json
type S3ReportArchiver struct {
	s3 *config.S3Config
}

// NewS3ReportArchiver creates a new S3ReportArchiver instance
func NewS3ReportArchiver(s3Config *config.S3Config) *S3ReportArchiver {
	return &S3ReportArchiver{s3: s3Config}
}

func reportObjectKey(report *models.SideEffectReport) string {
	return fmt.Sprintf("reports/%s/%s.json", report.UserID, report.ID)
}

// Archive uploads the report's serialized analysis result
func (a *S3ReportArchiver) Archive(ctx context.Context, report *models.SideEffectReport) error {
	_, err := a.s3.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.s3.BucketName),
		Key:         aws.String(reportObjectKey(report)),
		Body:        bytes.NewReader([]byte(report.AnalysisResult)),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload report to S3: %w", err)
	}
	return nil
}
