package pipeline

import (
	"encoding/json"
	"fmt"

	"compforge/internal/executor"
	"compforge/internal/selector"
)

// Stage names double as cache categories.
const (
	StageAnalysis  = "analysis"
	StageTemplate  = "template"
	StageDialog    = "dialog"
	StageClientlib = "clientlib"
)

// Canonical payload keys produced by the stages.
const (
	keySharedContext = "shared_context"
	keyDataModel     = "data_model"
	keyTemplate      = "template"
	keyDialog        = "dialog"
	keyContentXML    = "content_xml"
	keyClientlib     = "clientlib"
)

type stageSpec struct {
	name      string
	stageType selector.StageType
	// requires lists upstream stages whose results must be present in the
	// shared context before this stage's result may be merged.
	requires []string
	required []string
	maxTurns int
}

var stageSpecs = map[string]stageSpec{
	StageAnalysis: {
		name:      StageAnalysis,
		stageType: selector.StageAnalysis,
		required:  []string{keySharedContext, keyDataModel},
		maxTurns:  10,
	},
	StageTemplate: {
		name:      StageTemplate,
		stageType: selector.StageTemplate,
		requires:  []string{StageAnalysis},
		required:  []string{keyTemplate},
		maxTurns:  8,
	},
	StageDialog: {
		name:      StageDialog,
		stageType: selector.StageDialog,
		requires:  []string{StageAnalysis},
		required:  []string{keyDialog},
		maxTurns:  8,
	},
	StageClientlib: {
		name:      StageClientlib,
		stageType: selector.StageClientlib,
		requires:  []string{StageAnalysis, StageTemplate},
		required:  []string{keyClientlib},
		maxTurns:  6,
	},
}

const analysisSystemPrompt = `You analyze a UI component request and produce its data model.
Respond with a single JSON object:
{
  "shared_context": {"display_name": "...", "internal_name": "...", "summary": "...", "fields": [...]},
  "data_model": "complete data model source"
}`

const templateSystemPrompt = `You generate the component's markup template from an analyzed request.
Respond with a single JSON object: {"template": "complete markup template"}`

const dialogSystemPrompt = `You generate the component's authoring dialog configuration as XML.
Respond with a single JSON object:
{"dialog": "dialog XML", "content_xml": "component descriptor XML"}`

const clientlibSystemPrompt = `You generate the component's client-side assets (CSS and JS) for the given markup.
Respond with a single JSON object: {"clientlib": {"css": "...", "js": "..."}}`

func analysisPrompt(req Request) executor.Prompt {
	return executor.Prompt{
		System: analysisSystemPrompt,
		Input:  fmt.Sprintf("USER REQUIREMENT: %s\nGenerate the complete analysis and data model.", req.Text),
		Image:  req.Image,
	}
}

func templatePrompt(shared map[string]any, dataModel string) executor.Prompt {
	return executor.Prompt{
		System: templateSystemPrompt,
		Input: fmt.Sprintf("SHARED CONTEXT: %s\nDATA MODEL REFERENCE: %s\nGenerate the complete markup template.",
			mustJSON(shared), dataModel),
	}
}

func dialogPrompt(shared map[string]any, dataModel string) executor.Prompt {
	return executor.Prompt{
		System: dialogSystemPrompt,
		Input: fmt.Sprintf("SHARED CONTEXT: %s\nDATA MODEL REFERENCE: %s\nGenerate the complete dialog configuration.",
			mustJSON(shared), dataModel),
	}
}

func clientlibPrompt(shared map[string]any, template string) executor.Prompt {
	return executor.Prompt{
		System: clientlibSystemPrompt,
		Input: fmt.Sprintf("SHARED CONTEXT: %s\nTEMPLATE REFERENCE: %s\nGenerate the complete client asset bundle.",
			mustJSON(shared), template),
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
