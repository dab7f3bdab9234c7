// Package file keeps earnings-rag configuration on disk under the config
// directory: settings.toml through ConfigStore, environment and .env
// overrides through EnvConfigStore, prompt templates through PromptStore,
// and evaluation experiments through LoadExperiments.
package file
