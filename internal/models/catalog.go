package models

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

type ModelInfo struct {
	ID       string   `json:"id"`
	Provider Provider `json:"provider"`
	Label    string   `json:"label"`
}

// Catalog is the fixed set of models a session may select, in display order.
var Catalog = []ModelInfo{
	{ID: "gpt-3.5-turbo", Provider: ProviderOpenAI, Label: "GPT-3.5 Turbo"},
	{ID: "gpt-3.5-turbo-16k", Provider: ProviderOpenAI, Label: "GPT-3.5 Turbo 16k"},
	{ID: "gpt-4", Provider: ProviderOpenAI, Label: "GPT-4"},
	{ID: "gemini-1.5-flash", Provider: ProviderGemini, Label: "Gemini 1.5 Flash"},
	{ID: "gemini-1.5-pro", Provider: ProviderGemini, Label: "Gemini 1.5 Pro"},
}

// LookupModel finds a catalog entry by id.
func LookupModel(id string) (ModelInfo, bool) {
	for _, m := range Catalog {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

type AppInfo struct {
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	ImageCaption string      `json:"image_caption"`
	Greeting     string      `json:"greeting"`
	DefaultModel string      `json:"default_model"`
	Models       []ModelInfo `json:"models"`
}

const (
	AppTitle        = "Custom Chatbot"
	AppDescription  = "A chatbot backed by hosted language models that can also summarize PDF documents."
	AppImageCaption = "OpenAI, Gemini and Go"
)

// NewAppInfo describes the widget shell for the given default model.
func NewAppInfo(defaultModel string) AppInfo {
	return AppInfo{
		Title:        AppTitle,
		Description:  AppDescription,
		ImageCaption: AppImageCaption,
		Greeting:     Greeting,
		DefaultModel: defaultModel,
		Models:       Catalog,
	}
}
