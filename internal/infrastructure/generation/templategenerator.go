package generation

import (
	"context"
	"fmt"

	appgeneration "github.com/gamezxlan/ley-en-mano-backend/internal/application/generation"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/constants"
	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/logger"
)

// TemplateGenerator produces the consultation document from fixed templates.
// It stands in for a model-backed generator behind the same interface; the
// quota and policy machinery is identical either way.
type TemplateGenerator struct {
	logger logger.Interface
}

func NewTemplateGenerator(logger logger.Interface) *TemplateGenerator {
	return &TemplateGenerator{logger: logger}
}

func (g *TemplateGenerator) Generate(ctx context.Context, req appgeneration.Request) (*appgeneration.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := map[string]interface{}{
		"model": req.ModelKind,
		"mode":  req.ResponseMode,
	}

	switch req.ResponseMode {
	case constants.ResponseModeFull:
		content["diagnosis"] = numbered(diagnosisSteps, req.ItemCap)
		content["shield"] = numbered(shieldSteps, req.ItemCap)
		content["documents"] = []string{"acta_de_hechos", "carta_responsiva"}
	case constants.ResponseModeDiagnosisAndShield:
		content["diagnosis"] = numbered(diagnosisSteps, req.ItemCap)
		content["shield"] = numbered(shieldSteps, req.ItemCap)
	default:
		content["shield"] = numbered(shieldSteps, req.ItemCap)
	}

	return &appgeneration.Result{Content: content}, nil
}

var diagnosisSteps = []string{
	"Identifica la relación jurídica descrita en la consulta",
	"Determina los plazos legales aplicables",
	"Localiza la normativa estatal o federal relevante",
	"Evalúa los riesgos inmediatos de la situación",
}

var shieldSteps = []string{
	"Documenta los hechos por escrito con fecha y hora",
	"Reúne evidencia: mensajes, recibos y testigos",
	"Envía una comunicación formal que deje constancia",
	"Consulta los límites de tiempo antes de actuar",
	"Conserva copias de todo documento entregado",
}

func numbered(steps []string, itemCap int) []string {
	if itemCap > 0 && len(steps) > itemCap {
		steps = steps[:itemCap]
	}
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = fmt.Sprintf("%d. %s", i+1, s)
	}
	return out
}
