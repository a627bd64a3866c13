package rules

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sigepol/sigepol-engine/pkg/models"
	"github.com/sigepol/sigepol-engine/pkg/repositories"
	"github.com/sigepol/sigepol-engine/pkg/services"
)

// Built-in rule codes.
const (
	CodeExpiringPolicies = "POLIZAS_POR_EXPIRAR"
	CodeTopClients       = "CLIENTES_TOP_PRODUCCION"
	CodeProductionDrop   = "PRODUCCION_BAJA_DETECTADA"
	CodeIrregularTerms   = "VIGENCIA_IRREGULAR_DETECTADA"
	CodeDataSanity       = "SANIDAD_DATOS"
)

// Builtins holds the dependencies shared by the built-in rules.
type Builtins struct {
	policyRepo repositories.PolicyRepository
	alerts     *services.AlertService
	logger     *zap.Logger
}

// RegisterBuiltins wires every built-in rule handler into the registry.
func RegisterBuiltins(reg *Registry, policyRepo repositories.PolicyRepository, alerts *services.AlertService, logger *zap.Logger) {
	b := &Builtins{
		policyRepo: policyRepo,
		alerts:     alerts,
		logger:     logger.Named("builtin_rules"),
	}
	reg.Register(CodeExpiringPolicies, b.expiringPolicies)
	reg.Register(CodeTopClients, b.topClients)
	reg.Register(CodeProductionDrop, b.productionDrop)
	reg.Register(CodeIrregularTerms, b.irregularTerms)
	reg.Register(CodeDataSanity, b.dataSanity)
}

// expiringPolicies alerts on policies ending inside the configured window.
// Parameters: dias (default 30), severidad (default warning).
func (b *Builtins) expiringPolicies(ctx context.Context, rule *models.Rule) (map[string]any, error) {
	days := rule.IntParam("dias", 30)
	severity := rule.StringParam("severidad", models.AlertSeverityWarning)

	today := todayDate()
	limit := today.AddDate(0, 0, days)

	policies, err := b.policyRepo.ListExpiringBetween(ctx, today, limit)
	if err != nil {
		return nil, err
	}

	created := 0
	for _, p := range policies {
		remaining := int(p.EndDate.Sub(today).Hours() / 24)
		_, err := b.alerts.CreateAlert(ctx, services.AlertParams{
			Type:     models.AlertTypeExpirations,
			Title:    "PÓLIZA POR VENCER",
			Message:  fmt.Sprintf("La póliza %s vence en %d días", p.Number, remaining),
			Severity: severity,
			Policy:   p,
		})
		if err != nil {
			return nil, err
		}
		created++
	}

	return map[string]any{
		"status":             models.ExecutionStatusSuccess,
		"alertas_creadas":    created,
		"polizas_procesadas": len(policies),
		"rango_dias":         fmt.Sprintf("0 a %d", days),
		"fecha_base":         today.Format("2006-01-02"),
		"fecha_limite":       limit.Format("2006-01-02"),
	}, nil
}

// topClients detects clients above a production threshold.
// Parameters: min_uf (default 500), generar_alerta (default true).
func (b *Builtins) topClients(ctx context.Context, rule *models.Rule) (map[string]any, error) {
	minUF := rule.Float64Param("min_uf", 500)
	generateAlerts := rule.BoolParam("generar_alerta", true)

	top, err := b.policyRepo.ProductionByClient(ctx, minUF, 10000)
	if err != nil {
		return nil, err
	}

	created := 0
	if generateAlerts {
		for i := range top {
			cp := top[i]
			_, err := b.alerts.CreateAlert(ctx, services.AlertParams{
				Type:  models.AlertTypeTopClient,
				Title: "CLIENTE TOP DETECTADO",
				Message: fmt.Sprintf("Cliente %s (%s) con %.2f UF en %d pólizas",
					cp.Name, cp.RUT, cp.TotalUF, cp.Policies),
				Severity: models.AlertSeverityInfo,
				Client:   &models.Client{ID: cp.ClientID, RUT: cp.RUT, Name: cp.Name},
			})
			if err != nil {
				return nil, err
			}
			created++
		}
	}

	details := make([]map[string]any, 0, 10)
	for i, cp := range top {
		if i == 10 {
			break
		}
		details = append(details, map[string]any{
			"rut":              cp.RUT,
			"nombre":           cp.Name,
			"total_uf":         cp.TotalUF,
			"polizas_vigentes": cp.Policies,
		})
	}

	return map[string]any{
		"status":                  models.ExecutionStatusSuccess,
		"clientes_top_detectados": len(top),
		"alertas_creadas":         created,
		"umbral_uf":               minUF,
		"detalles":                details,
	}, nil
}

// productionDrop compares policy starts between two adjacent windows and
// alerts when the drop exceeds the threshold.
// Parameters: dias_comparar (default 7), porcentaje_caida (default 30).
func (b *Builtins) productionDrop(ctx context.Context, rule *models.Rule) (map[string]any, error) {
	compareDays := rule.IntParam("dias_comparar", 7)
	dropThreshold := rule.Float64Param("porcentaje_caida", 30)

	today := todayDate()
	previous, err := b.policyRepo.CountStartedBetween(ctx,
		today.AddDate(0, 0, -compareDays), today.AddDate(0, 0, -compareDays))
	if err != nil {
		return nil, err
	}
	current, err := b.policyRepo.CountStartedBetween(ctx,
		today.AddDate(0, 0, -(compareDays-1)), today)
	if err != nil {
		return nil, err
	}

	dropPct := 0.0
	if previous > 0 {
		dropPct = float64(previous-current) / float64(previous) * 100
	}

	alerted := false
	if dropPct >= dropThreshold {
		_, err := b.alerts.CreateAlert(ctx, services.AlertParams{
			Type:  models.AlertTypeLowProduction,
			Title: "CAÍDA DE PRODUCCIÓN DETECTADA",
			Message: fmt.Sprintf("La producción cayó %.1f%% en los últimos %d días",
				dropPct, compareDays),
			Severity: models.AlertSeverityCritical,
		})
		if err != nil {
			return nil, err
		}
		alerted = true
	}

	return map[string]any{
		"status":              models.ExecutionStatusSuccess,
		"produccion_anterior": previous,
		"produccion_actual":   current,
		"caida_porcentual":    round2(dropPct),
		"alerta_generada":     alerted,
		"periodo_dias":        compareDays,
		"umbral_caida":        dropThreshold,
	}, nil
}

// irregularTerms flags clients with an unusual number of policy starts in
// the analysis window.
// Parameters: dias_analisis (default 90), min_renovaciones (default 3).
func (b *Builtins) irregularTerms(ctx context.Context, rule *models.Rule) (map[string]any, error) {
	analysisDays := rule.IntParam("dias_analisis", 90)
	minRenewals := rule.IntParam("min_renovaciones", 3)

	since := todayDate().AddDate(0, 0, -analysisDays)
	anomalous, err := b.policyRepo.RenewalsSince(ctx, since, minRenewals)
	if err != nil {
		return nil, err
	}

	created := 0
	for i := range anomalous {
		cr := anomalous[i]
		_, err := b.alerts.CreateAlert(ctx, services.AlertParams{
			Type:  models.AlertTypeIrregularTerm,
			Title: "VIGENCIA IRREGULAR DETECTADA",
			Message: fmt.Sprintf("Cliente %s tiene %d renovaciones en %d días",
				cr.Name, cr.Renewals, analysisDays),
			Severity: models.AlertSeverityWarning,
			Client:   &models.Client{ID: cr.ClientID, RUT: cr.RUT, Name: cr.Name},
		})
		if err != nil {
			return nil, err
		}
		created++
	}

	return map[string]any{
		"status":              models.ExecutionStatusSuccess,
		"clientes_detectados": len(anomalous),
		"alertas_creadas":     created,
		"dias_analisis":       analysisDays,
		"renovaciones_minimo": minRenewals,
	}, nil
}

// dataSanity sweeps the policy base for incomplete or inconsistent rows.
// Past-due policies still marked VIGENTE are flipped to VENCIDA unless
// repair is disabled. Parameters: alertar_campos_vacios (default true),
// alertar_fechas_inconsistentes (default true), corregir_estados
// (default true).
func (b *Builtins) dataSanity(ctx context.Context, rule *models.Rule) (map[string]any, error) {
	checkEmpty := rule.BoolParam("alertar_campos_vacios", true)
	checkDates := rule.BoolParam("alertar_fechas_inconsistentes", true)
	repair := rule.BoolParam("corregir_estados", true)

	var problems []string

	if checkEmpty {
		zeroAmount, err := b.policyRepo.CountZeroAmount(ctx)
		if err != nil {
			return nil, err
		}
		if zeroAmount > 0 {
			problems = append(problems, fmt.Sprintf("%d pólizas sin monto UF", zeroAmount))
		}
	}

	corrected := 0
	if checkDates {
		inconsistent, err := b.policyRepo.CountInconsistentExpired(ctx, todayDate())
		if err != nil {
			return nil, err
		}
		if inconsistent > 0 {
			problems = append(problems,
				fmt.Sprintf("%d pólizas con vencimiento pasado pero estado incorrecto", inconsistent))
			if repair {
				corrected, err = b.policyRepo.MarkExpired(ctx, todayDate())
				if err != nil {
					return nil, err
				}
			}
		}
	}

	action := "Sin problemas"
	if len(problems) > 0 {
		action = "Alerta generada"
		_, err := b.alerts.CreateAlert(ctx, services.AlertParams{
			Type:     models.AlertTypeDataSanity,
			Title:    "PROBLEMAS DE SANIDAD DE DATOS",
			Message:  strings.Join(problems, "; "),
			Severity: models.AlertSeverityWarning,
		})
		if err != nil {
			return nil, err
		}
	}

	return map[string]any{
		"status":                models.ExecutionStatusSuccess,
		"problemas_encontrados": len(problems),
		"detalles":              problems,
		"estados_corregidos":    corrected,
		"accion":                action,
	}, nil
}

func todayDate() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
