package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"
	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/models"
	"github.com/sigepol/sigepol-engine/pkg/repositories"
)

// DatasetService regenerates the flattened ML training extract after each
// successful ingestion run. It writes both a Parquet file (consumed by the
// external training job) and a CSV twin for ad-hoc inspection.
type DatasetService struct {
	datasetRepo repositories.DatasetRepository
	dir         string
	logger      *zap.Logger
}

// DatasetResult reports what a regeneration produced.
type DatasetResult struct {
	Rows        int    `json:"registros"`
	ParquetPath string `json:"parquet"`
	CSVPath     string `json:"csv"`
}

func NewDatasetService(datasetRepo repositories.DatasetRepository, dir string, logger *zap.Logger) *DatasetService {
	return &DatasetService{
		datasetRepo: datasetRepo,
		dir:         dir,
		logger:      logger.Named("dataset_service"),
	}
}

// Regenerate rebuilds dataset_ml.parquet and dataset_ml.csv from the
// current policy base.
func (s *DatasetService) Regenerate(ctx context.Context) (*DatasetResult, error) {
	rows, err := s.datasetRepo.ListRows(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no policies available for the dataset")
	}

	parquetPath := filepath.Join(s.dir, "dataset_ml.parquet")
	if err := s.writeParquet(parquetPath, rows); err != nil {
		return nil, err
	}

	csvPath := filepath.Join(s.dir, "dataset_ml.csv")
	if err := s.writeCSV(csvPath, rows); err != nil {
		return nil, err
	}

	s.logger.Info("ml dataset regenerated",
		zap.Int("registros", len(rows)),
		zap.String("parquet", parquetPath))

	return &DatasetResult{Rows: len(rows), ParquetPath: parquetPath, CSVPath: csvPath}, nil
}

func (s *DatasetService) writeParquet(path string, rows []models.DatasetRow) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(models.DatasetRow), 2)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			return fmt.Errorf("failed to write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

func (s *DatasetService) writeCSV(path string, rows []models.DatasetRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return fmt.Errorf("failed to encode dataset row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
