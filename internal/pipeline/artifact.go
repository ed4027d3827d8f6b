package pipeline

import (
	"compforge/internal/executor"
)

// FinalArtifact is the merged output of a completed run. Every field is
// required except ContentXML.
type FinalArtifact struct {
	PrimaryTemplate  string `json:"primary_template"`
	DataModel        string `json:"data_model"`
	StructuredConfig string `json:"structured_config"`
	AssetBundle      any    `json:"asset_bundle"`
	DisplayName      string `json:"display_name"`
	InternalName     string `json:"internal_name"`
	ContentXML       string `json:"content_xml,omitempty"`
}

// Map flattens the artifact into the fixed key set persisted by sinks.
func (a FinalArtifact) Map() map[string]any {
	m := map[string]any{
		"primary_template":  a.PrimaryTemplate,
		"data_model":        a.DataModel,
		"structured_config": a.StructuredConfig,
		"asset_bundle":      a.AssetBundle,
		"display_name":      a.DisplayName,
		"internal_name":     a.InternalName,
	}
	if a.ContentXML != "" {
		m["content_xml"] = a.ContentXML
	}
	return m
}

const assemblyStage = "assembly"

// assemble composes the final artifact from the four stage payloads. A
// missing or empty component fails the run rather than producing a partial
// artifact.
func assemble(sc *sharedContext) (FinalArtifact, error) {
	analysis, ok := sc.payload(StageAnalysis)
	if !ok {
		return FinalArtifact{}, &executor.ValidationError{Stage: assemblyStage, MissingKey: StageAnalysis}
	}
	template, ok := sc.payload(StageTemplate)
	if !ok {
		return FinalArtifact{}, &executor.ValidationError{Stage: assemblyStage, MissingKey: StageTemplate}
	}
	dialog, ok := sc.payload(StageDialog)
	if !ok {
		return FinalArtifact{}, &executor.ValidationError{Stage: assemblyStage, MissingKey: StageDialog}
	}
	clientlib, ok := sc.payload(StageClientlib)
	if !ok {
		return FinalArtifact{}, &executor.ValidationError{Stage: assemblyStage, MissingKey: StageClientlib}
	}

	var art FinalArtifact
	var err error
	if art.PrimaryTemplate, err = stringKey(template, keyTemplate); err != nil {
		return FinalArtifact{}, err
	}
	if art.DataModel, err = stringKey(analysis, keyDataModel); err != nil {
		return FinalArtifact{}, err
	}
	if art.StructuredConfig, err = stringKey(dialog, keyDialog); err != nil {
		return FinalArtifact{}, err
	}
	bundle, ok := clientlib[keyClientlib]
	if !ok || bundle == nil {
		return FinalArtifact{}, &executor.ValidationError{Stage: assemblyStage, MissingKey: keyClientlib}
	}
	art.AssetBundle = bundle

	shared, _ := analysis[keySharedContext].(map[string]any)
	if shared == nil {
		return FinalArtifact{}, &executor.ValidationError{Stage: assemblyStage, MissingKey: keySharedContext}
	}
	if art.DisplayName, err = stringKey(shared, "display_name"); err != nil {
		return FinalArtifact{}, err
	}
	if art.InternalName, err = stringKey(shared, "internal_name"); err != nil {
		return FinalArtifact{}, err
	}
	if xml, ok := dialog[keyContentXML].(string); ok {
		art.ContentXML = xml
	}
	return art, nil
}

func stringKey(payload map[string]any, key string) (string, error) {
	v, ok := payload[key].(string)
	if !ok || v == "" {
		return "", &executor.ValidationError{Stage: assemblyStage, MissingKey: key}
	}
	return v, nil
}
