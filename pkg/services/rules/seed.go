package rules

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sigepol/sigepol-engine/pkg/models"
	"github.com/sigepol/sigepol-engine/pkg/repositories"
)

// seedFile is the on-disk shape of rules.yaml.
type seedFile struct {
	Rules []seedRule `yaml:"rules"`
}

type seedRule struct {
	Code           string         `yaml:"codigo"`
	Name           string         `yaml:"nombre"`
	Description    string         `yaml:"descripcion"`
	Type           string         `yaml:"tipo"`
	Active         *bool          `yaml:"activa"`
	ExecutionOrder int            `yaml:"orden_ejecucion"`
	Parameters     map[string]any `yaml:"parametros"`
}

// SeedFromFile loads rule definitions from a YAML file and inserts any that
// are not yet present. Existing rules are never overwritten, so operator
// edits to parameters or activation survive restarts.
func SeedFromFile(ctx context.Context, path string, ruleRepo repositories.RuleRepository, logger *zap.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	seeded := 0
	for _, sr := range file.Rules {
		if sr.Code == "" {
			return fmt.Errorf("rules file %s: rule without codigo", path)
		}
		active := true
		if sr.Active != nil {
			active = *sr.Active
		}
		rule := &models.Rule{
			Name:           sr.Name,
			Description:    sr.Description,
			Type:           sr.Type,
			Code:           sr.Code,
			Active:         active,
			ExecutionOrder: sr.ExecutionOrder,
			Parameters:     sr.Parameters,
		}
		if rule.Parameters == nil {
			rule.Parameters = map[string]any{}
		}
		created, err := ruleRepo.Seed(ctx, rule)
		if err != nil {
			return err
		}
		if created {
			seeded++
		}
	}

	logger.Info("rule definitions seeded",
		zap.Int("total", len(file.Rules)),
		zap.Int("nuevas", seeded),
		zap.String("archivo", path))
	return nil
}
