package agentlab

import (
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/agentlab/agent"
	"github.com/hupe1980/agentlab/artifact"
	"github.com/hupe1980/agentlab/code"
	"github.com/hupe1980/agentlab/config"
	"github.com/hupe1980/agentlab/internal/util"
	"github.com/hupe1980/agentlab/logging"
	"github.com/hupe1980/agentlab/meeting"
	"github.com/hupe1980/agentlab/model"
	"github.com/hupe1980/agentlab/model/anthropic"
	"github.com/hupe1980/agentlab/model/openai"
	"github.com/hupe1980/agentlab/tool/builtin"
)

// NewModel builds the backend selected by cfg.Provider, throttled when
// cfg.RateLimit is set.
func NewModel(cfg config.ModelConfig) (model.Model, error) {
	var m model.Model

	switch cfg.Provider {
	case "openai":
		m = openai.NewModel(func(o *openai.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		})
	case "anthropic":
		m = anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Name)
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
			o.APIKey = cfg.APIKey
		})
	case "scripted":
		name := cfg.Name
		if name == "" {
			name = "scripted"
		}

		m = model.NewScriptedModel(name).WithFallback(offlineReply)
	default:
		return nil, fmt.Errorf("%w: unknown model provider %q", config.ErrInvalidConfig, cfg.Provider)
	}

	if cfg.RateLimit > 0 {
		m = model.RateLimited(m, cfg.RateLimit, cfg.Burst)
	}

	return m, nil
}

// FromConfig builds a Lab from cfg. Options in optFns are applied last and
// may replace anything derived from cfg, for example the model. The caller
// must Close the Lab.
func FromConfig(cfg *config.Config, logger logging.Logger, optFns ...func(o *Options)) (*Lab, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m, err := NewModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	var closers []func() error

	fail := func(err error) (*Lab, error) {
		for _, c := range closers {
			_ = c()
		}

		return nil, err
	}

	var artifacts *artifact.DirStore
	if cfg.Tools.Artifacts != "" {
		artifacts, err = artifact.NewDirStore(cfg.Tools.Artifacts)
		if err != nil {
			return fail(fmt.Errorf("open artifact directory: %w", err))
		}
	}

	var dataset *builtin.Dataset
	if cfg.Tools.Dataset != "" {
		dataset, err = builtin.OpenDataset(cfg.Tools.Dataset)
		if err != nil {
			return fail(fmt.Errorf("open dataset: %w", err))
		}

		closers = append(closers, dataset.Close)
	}

	var executor code.Executor
	if interpreter := strings.Fields(cfg.Tools.CodeInterpreter); len(interpreter) > 0 {
		executor = code.NewSubprocessExecutor(func(o *code.SubprocessOptions) {
			o.Interpreter = interpreter
			if cfg.Tools.CodeTimeout > 0 {
				o.Timeout = cfg.Tools.CodeTimeout
			}
		})
	}

	fns := []func(o *Options){func(o *Options) {
		o.Model = m
		o.Workspace = cfg.Tools.Workspace
		o.CodeExecutor = executor
		o.Dataset = dataset
		o.MaxRows = cfg.Tools.MaxRows
		o.ToolTimeout = cfg.Agent.ToolTimeout
		o.ParallelTools = cfg.Agent.ParallelTools
		o.Logger = logger

		if artifacts != nil {
			o.Artifacts = artifacts
		}

		o.AgentOptions = []func(o *agent.Options){func(ao *agent.Options) {
			ao.MaxIterations = cfg.Agent.MaxIterations
			ao.BackendRetries = cfg.Agent.BackendRetries
			ao.BackendBackoff = cfg.Agent.BackendBackoff
			ao.BackendTimeout = cfg.Agent.BackendTimeout
			ao.TaskTimeout = cfg.Agent.TaskTimeout
			ao.Stream = cfg.Agent.Stream
		}}

		o.MeetingOptions = []func(o *meeting.Options){func(mo *meeting.Options) {
			mo.Rounds = cfg.Meeting.Rounds
			mo.MaxTeamSize = cfg.Meeting.MaxTeamSize
			mo.RedFlagRetries = cfg.Meeting.RedFlagRetries
			mo.MaxSubtasks = cfg.Meeting.MaxSubtasks
			mo.SpecialistTimeout = cfg.Meeting.SpecialistTimeout
		}}
	}}

	lab, err := New(append(fns, optFns...)...)
	if err != nil {
		return fail(err)
	}

	lab.closers = closers

	return lab, nil
}

// offlineReply answers with the first line of the task so that scripted runs
// exercise every phase without a backend. It never emits JSON, so team design,
// planning and the quality gate take their fallbacks.
func offlineReply(req model.Request) model.ScriptStep {
	text := model.LastUserText(req)
	if _, task, ok := strings.Cut(text, "Task:\n"); ok {
		text = task
	}

	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	line = strings.NewReplacer("{", "(", "}", ")").Replace(line)

	return model.Text("(offline) " + util.Truncate(line, 200))
}
