package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/homefix-assistant/server/internal/agent/conversation"
	"github.com/homefix-assistant/server/internal/agent/escalation"
	"github.com/homefix-assistant/server/internal/agent/graph/conversations"
	"github.com/homefix-assistant/server/internal/agent/graph/nodes"
	"github.com/homefix-assistant/server/internal/agent/graph/observers"
	"github.com/homefix-assistant/server/internal/agent/graph/prompts"
	"github.com/homefix-assistant/server/internal/agent/graph/tools"
	"github.com/homefix-assistant/server/internal/agent/model"
	"github.com/homefix-assistant/server/internal/agent/repo"
	logx "github.com/homefix-assistant/server/pkg/logger"
)

// Runner executes one conversation turn at a time. A session must not be
// passed to concurrent HandleTurn calls.
type Runner interface {
	HandleTurn(ctx context.Context, sess *conversation.Session, message string) (*model.TurnResult, error)
	// Escalation evaluates the session as it stands, using its last sentiment.
	Escalation(ctx context.Context, sess *conversation.Session) model.TurnResult
	Sessions() *conversations.MessagesManager
}

// Config holds everything needed to compose the full turn graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs
// ChatModels, prompts and the MessagesManager.
type Config struct {
	APIKey           string
	BaseURL          string
	FactModel        model.FactModelConfig
	ResponseModel    model.ResponseModelConfig
	Prompts          model.PromptConfig
	Conversation     model.ConversationConfig
	ConversationRepo model.ConversationRepository
	Records          *repo.Records
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels      *nodes.ChatModels
	MessagesManager *conversations.MessagesManager
	FactPrompt      *prompts.FactPrompt
	Toolbox         *tools.Toolbox
	Records         *repo.Records
	Detector        *escalation.Detector
	ToolsEnabled    bool
	ToolMaxRounds   int
}

// GraphBuilder handles the construction of the turn graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.TurnInput, *model.TurnResult]
}

type graphRunner struct {
	runnable compose.Runnable[model.TurnInput, *model.TurnResult]
	config   *GraphConfig
}

func (r *graphRunner) HandleTurn(ctx context.Context, sess *conversation.Session, message string) (*model.TurnResult, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message is empty")
	}

	out, err := r.runnable.Invoke(ctx, model.TurnInput{
		Session: sess,
		Message: message,
	}, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, err
	}

	// Persistence is best effort; the turn already happened
	if err := r.config.MessagesManager.SaveSession(ctx, sess); err != nil {
		logx.Warn().Err(err).Str("session_id", sess.ID).Msg("Failed to persist session")
	}
	return out, nil
}

func (r *graphRunner) Escalation(ctx context.Context, sess *conversation.Session) model.TurnResult {
	critical, err := r.config.Records.HasCriticalTicket(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("Failed to read tickets; assuming no critical safety issue")
	}
	verdict := r.config.Detector.Evaluate(sess.State, sess.LastSentiment, critical)
	res := model.TurnResult{
		SessionID:  sess.ID,
		Verdict:    verdict,
		Unanswered: sess.FollowUps.UnansweredCount(),
	}
	if verdict.ShouldEscalate {
		res.Advisory = escalation.Message(verdict.Severity)
	}
	return res
}

func (r *graphRunner) Sessions() *conversations.MessagesManager {
	return r.config.MessagesManager
}

// BuildTurnGraph composes ChatModels, prompts and MessagesManager, builds the
// graph, and returns a Runner.
func BuildTurnGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}
	if cfg.Records == nil {
		return nil, fmt.Errorf("record store is nil")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		FactConfig: &cfg.FactModel,
		RespConfig: &cfg.ResponseModel,
	})
	if err != nil {
		return nil, err
	}

	systemPrompt, err := prompts.RenderSystemPrompt(ctx, cfg.Prompts)
	if err != nil {
		return nil, err
	}
	factPrompt, err := prompts.LoadFactPrompt(cfg.Prompts)
	if err != nil {
		return nil, err
	}

	gc := &GraphConfig{
		ChatModels:      cms,
		MessagesManager: conversations.NewMessagesManager(cfg.ConversationRepo, systemPrompt),
		FactPrompt:      factPrompt,
		Toolbox:         tools.NewToolbox(cfg.Records),
		Records:         cfg.Records,
		Detector:        escalation.NewDetector(),
		ToolsEnabled:    cfg.Conversation.Tools.Enabled,
		ToolMaxRounds:   cfg.Conversation.Tools.MaxRounds,
	}
	runnable, err := BuildGraph(ctx, gc)
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Turn graph built successfully")
	return &graphRunner{runnable: runnable, config: gc}, nil
}

// NewRunner builds a Runner from a prepared GraphConfig, for callers that
// construct their own chat models.
func NewRunner(ctx context.Context, config *GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	return &graphRunner{runnable: runnable, config: config}, nil
}

// BuildGraph constructs and returns the compiled turn graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.TurnInput, *model.TurnResult], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Fact == nil || config.ChatModels.Response == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.MessagesManager == nil || config.FactPrompt == nil {
		return nil, fmt.Errorf("messages manager or fact prompt is nil")
	}
	if config.Toolbox == nil || config.Records == nil {
		return nil, fmt.Errorf("toolbox or record store is nil")
	}
	if config.Detector == nil {
		config.Detector = escalation.NewDetector()
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.TurnInput, *model.TurnResult](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}
	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools creates the tools node and, when enabled, binds the tool
// schemas to the response model. With tools disabled the model never sees
// them, so the tools node is never reached.
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	maintenanceTools := b.config.Toolbox.GetQueryTools()

	if b.config.ToolsEnabled {
		toolInfos, err := tools.GetToolInfos(ctx, maintenanceTools)
		if err != nil {
			logx.Error().Err(err).Msg("Failed to get tool infos")
			return fmt.Errorf("failed to get tool infos: %w", err)
		}
		if err := b.config.ChatModels.BindToolsToResponseModel(ctx, toolInfos); err != nil {
			return err
		}
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:                maintenanceTools,
		ExecuteSequentially:  true,
		UnknownToolsHandler:  UnknownToolsHandler,
		ToolArgumentsHandler: ToolArgumentsHandler,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	if err := b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxRounds)),
	); err != nil {
		return fmt.Errorf("add tools node: %w", err)
	}
	return nil
}

// UnknownToolsHandler answers hallucinated or malformed tool calls with a
// structured result the model can recover from.
func UnknownToolsHandler(ctx context.Context, name, input string) (string, error) {
	logx.Warn().
		Str("tool_name", name).
		Str("arguments", input).
		Msg("Unknown or invalid tool call; returning fallback result")
	b, err := json.Marshal(model.ToolFailed("Unknown tool %q. Available tools: %s", name, strings.Join(toolNames, ", ")))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var toolNames = []string{
	tools.ToolBookAppointment,
	tools.ToolLogIssue,
	tools.ToolCreateTicket,
	tools.ToolEscalateToHuman,
	tools.ToolCheckAvailability,
}

// ToolArgumentsHandler coerces model arguments into the shapes the tools
// decode. All parameters are strings except requires_immediate_action.
// Unparseable arguments become an empty object so the tool reports the
// problem instead of failing the turn.
func ToolArgumentsHandler(ctx context.Context, name, arguments string) (string, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil || m == nil {
		logx.Warn().Str("tool_name", name).Str("arguments", arguments).Msg("Tool arguments are not a JSON object")
		return "{}", nil
	}

	for k, v := range m {
		switch {
		case v == nil:
			delete(m, k)
		case k == "requires_immediate_action":
			switch vv := v.(type) {
			case bool:
			case string:
				m[k] = strings.EqualFold(strings.TrimSpace(vv), "true")
			default:
				delete(m, k)
			}
		default:
			switch vv := v.(type) {
			case string:
				m[k] = strings.TrimSpace(vv)
			case float64:
				m[k] = strconv.FormatFloat(vv, 'f', -1, 64)
			case bool:
				m[k] = strconv.FormatBool(vv)
			default:
				delete(m, k)
			}
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments, nil
	}
	return string(b), nil
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	cfg := b.config
	steps := []struct {
		key string
		add func() error
	}{
		{nodes.NodeInputConverter, func() error {
			return b.graph.AddLambdaNode(nodes.NodeInputConverter,
				nodes.NewInputConverterNode(),
				compose.WithStatePreHandler(nodes.NewInputConverterPreHandler()),
			)
		}},
		{nodes.NodeFactExtractor, func() error {
			return b.graph.AddLambdaNode(nodes.NodeFactExtractor,
				nodes.NewFactExtractorNode(cfg.ChatModels.Fact, cfg.FactPrompt, cfg.ChatModels.FactModelName),
				compose.WithStatePostHandler(nodes.NewFactExtractorPostHandler()),
			)
		}},
		{nodes.NodeResponseAssembler, func() error {
			return b.graph.AddLambdaNode(nodes.NodeResponseAssembler,
				nodes.NewResponseAssemblerNode(cfg.MessagesManager),
			)
		}},
		{nodes.NodeResponseChatModel, func() error {
			return b.graph.AddChatModelNode(nodes.NodeResponseChatModel,
				cfg.ChatModels.Response,
				compose.WithStatePreHandler(nodes.NewResponseChatModelPreHandler(cfg.ToolMaxRounds)),
				compose.WithStatePostHandler(nodes.NewResponseChatModelPostHandler(cfg.ChatModels.ResponseModelName)),
			)
		}},
		{nodes.NodeToolRecorder, func() error {
			return b.graph.AddLambdaNode(nodes.NodeToolRecorder,
				nodes.NewToolRecorderNode(cfg.MessagesManager),
			)
		}},
		{nodes.NodeFinalizer, func() error {
			return b.graph.AddLambdaNode(nodes.NodeFinalizer,
				nodes.NewFinalizerNode(cfg.Records, cfg.Detector),
			)
		}},
	}
	for _, s := range steps {
		if err := s.add(); err != nil {
			logx.Error().Err(err).Str("node", s.key).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", s.key, err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeInputConverter, nodes.NodeFactExtractor},
		{nodes.NodeFactExtractor, nodes.NodeResponseAssembler},
		{nodes.NodeResponseAssembler, nodes.NodeResponseChatModel},
		{nodes.NodeToolExecutor, nodes.NodeToolRecorder},
		{nodes.NodeToolRecorder, nodes.NodeResponseChatModel},
		{nodes.NodeFinalizer, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	decisionBranch := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			nodes.NodeFinalizer:    true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeResponseChatModel, decisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding decision branch")
		return fmt.Errorf("error adding decision branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *model.TurnResult], error) {
	// Each tool round runs executor, recorder and model again
	maxSteps := 10 + b.config.ToolMaxRounds*3
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("homefix_turn"),
		compose.WithMaxRunSteps(maxSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Int("max_run_steps", maxSteps).Msg("Graph compiled successfully")
	return runnable, nil
}
