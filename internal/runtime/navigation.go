package runtime

import (
	"context"
	"fmt"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/schema"
	"github.com/ajayshanks/datagpt/pkg/stages"
)

// Advance records input for the current stage, builds its payload and drives
// the stage until it is terminal or waiting on the Result Store.
//
// A nil input keeps whatever was recorded before. When the stage already has
// an output produced from an identical payload, that output is reused and no
// call is made. While the stage is in flight, Advance is a poll check and the
// input is ignored.
//
// Remote failures never surface here: they are committed as fallback outputs.
// Only a *domain.PayloadError (or a canceled ctx) is returned, and then pc is
// left exactly as it was.
func (e *Engine) Advance(ctx context.Context, pc *domain.PipelineContext, input map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	def, err := e.current(pc)
	if err != nil {
		return err
	}
	stage := pc.CurrentStage
	log := e.runLogger(pc, def)

	if pc.InFlight() {
		if input != nil {
			log.InfoContext(ctx, "stage in flight, input ignored", "state", pc.Active.State)
		}
		return e.check(ctx, pc, def)
	}

	prevInput, hadInput := pc.UserInputs[stage]
	prevOutput, hadOutput := pc.StageOutputs[stage]
	rollback := func() {
		if hadInput {
			pc.UserInputs[stage] = prevInput
		} else {
			delete(pc.UserInputs, stage)
		}
		if hadOutput {
			pc.StageOutputs[stage] = prevOutput
		}
	}
	if input != nil {
		pc.UserInputs[stage] = domain.CopyInput(input)
	}

	payload, err := def.Payload(pc, stage)
	if err != nil {
		rollback()
		log.WarnContext(ctx, "payload rejected", "error", err)
		return err
	}

	if out, ok := pc.Output(stage); ok {
		if out.Fingerprint == payload.Fingerprint {
			log.DebugContext(ctx, "reusing cached output", "fallback", out.Fallback)
			pc.CurrentStage++
			e.touch(pc)
			e.emitNavigate(ctx, pc, domain.NavAdvance, stage)
			return nil
		}
		log.DebugContext(ctx, "upstream changed, dropping stale output")
		delete(pc.StageOutputs, stage)
	}

	if err := e.run(ctx, pc, def, stage, payload); err != nil {
		rollback()
		return err
	}
	return nil
}

// Refresh performs one poll check for the stage in flight. It is the
// cooperative re-entry point: callers invoke it on a timer or on every view.
// It is a no-op when nothing is in flight.
func (e *Engine) Refresh(ctx context.Context, pc *domain.PipelineContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !pc.InFlight() {
		return nil
	}
	def, err := e.current(pc)
	if err != nil {
		return err
	}
	return e.check(ctx, pc, def)
}

// Back moves the pointer one stage back. Outputs are kept. An attempt in
// flight is abandoned: its token is forgotten and a late result is ignored.
func (e *Engine) Back(ctx context.Context, pc *domain.PipelineContext) error {
	if pc.CurrentStage <= 1 {
		return nil
	}
	from := pc.CurrentStage
	e.abandon(ctx, pc)
	pc.CurrentStage--
	e.touch(pc)
	e.emitNavigate(ctx, pc, domain.NavBack, from)
	return nil
}

// Resubmit clears the output and token of the current stage and leaves it
// idle, so the next Advance dispatches it again with a freshly built payload.
func (e *Engine) Resubmit(ctx context.Context, pc *domain.PipelineContext) error {
	if pc.Terminal() {
		return domain.ErrPipelineComplete
	}
	stage := pc.CurrentStage
	e.abandon(ctx, pc)
	delete(pc.StageOutputs, stage)
	delete(pc.CorrelationTokens, stage)
	e.touch(pc)
	e.emitNavigate(ctx, pc, domain.NavResubmit, stage)
	return nil
}

// Reset clears every input, output and token and returns to stage 1.
// The run keeps its ID.
func (e *Engine) Reset(ctx context.Context, pc *domain.PipelineContext) error {
	from := pc.CurrentStage
	e.abandon(ctx, pc)
	pc.CurrentStage = 1
	pc.StageCount = e.table.Len()
	pc.UserInputs = make(map[int]map[string]any)
	pc.StageOutputs = make(map[int]*domain.StageOutput)
	pc.CorrelationTokens = make(map[int]string)
	e.touch(pc)
	e.emitNavigate(ctx, pc, domain.NavReset, from)
	return nil
}

// View returns the read model of pc.
func (e *Engine) View(pc *domain.PipelineContext) domain.View {
	v := domain.View{
		RunID:        pc.RunID,
		CurrentStage: pc.CurrentStage,
		StageCount:   e.table.Len(),
		Complete:     pc.Terminal(),
		Stages:       make([]domain.StageView, 0, e.table.Len()),
	}
	for i, def := range e.table.All() {
		stage := i + 1
		sv := domain.StageView{
			Index:   stage,
			Name:    def.Name,
			Title:   def.Title,
			Mode:    def.Mode,
			State:   domain.StateIdle,
			Current: stage == pc.CurrentStage,
			Input:   domain.CopyInput(pc.Input(stage)),
		}
		if out, ok := pc.Output(stage); ok {
			sv.Output = out
			sv.State = domain.StateCompleted
		}
		if run := pc.Active; run != nil && run.Stage == stage {
			sv.State = run.State
			sv.Token = run.Token
			sv.Polls = run.Polls
			sv.LastError = run.LastError
		}
		v.Stages = append(v.Stages, sv)
	}
	return v
}

// current validates pc and returns the definition of its current stage.
func (e *Engine) current(pc *domain.PipelineContext) (stages.Definition, error) {
	corrupt := func(err error) error {
		name := fmt.Sprintf("#%d", pc.CurrentStage)
		if def, ok := e.table.Get(pc.CurrentStage); ok {
			name = def.Name
		}
		return &domain.PayloadError{Stage: name, Err: err}
	}
	if err := pc.Validate(); err != nil {
		return stages.Definition{}, corrupt(err)
	}
	if pc.StageCount != e.table.Len() {
		return stages.Definition{}, corrupt(fmt.Errorf("%w: context has %d stages, table has %d",
			domain.ErrCorruptContext, pc.StageCount, e.table.Len()))
	}
	if pc.Terminal() {
		return stages.Definition{}, domain.ErrPipelineComplete
	}
	if pc.Active != nil && pc.Active.Stage != pc.CurrentStage {
		return stages.Definition{}, corrupt(fmt.Errorf("%w: attempt in flight for stage %d",
			domain.ErrCorruptContext, pc.Active.Stage))
	}
	def, _ := e.table.Get(pc.CurrentStage)
	return def, nil
}

// run dispatches stage and folds the outcome into pc.
func (e *Engine) run(ctx context.Context, pc *domain.PipelineContext, def stages.Definition, stage int, payload *stages.Payload) error {
	log := e.runLogger(pc, def)
	run := &domain.StageRun{
		Stage:       stage,
		Name:        def.Name,
		State:       domain.StateDispatching,
		StartedAt:   e.now(),
		Fingerprint: payload.Fingerprint,
	}
	pc.Active = run
	e.emitStage(ctx, e.hooks.OnStageEnter, e.stageEvent(domain.EventStageEnter, pc, def, run))

	res := e.Dispatch(ctx, def, payload)
	if res.Outcome == DispatchFailed && ctx.Err() != nil {
		pc.Active = nil
		return ctx.Err()
	}

	switch res.Outcome {
	case DispatchCompleted:
		e.emitStage(ctx, e.hooks.OnDispatch, e.stageEvent(domain.EventDispatch, pc, def, run))
		e.commit(ctx, pc, def, res.Result, nil, domain.StateCompleted)
	case DispatchSubmitted:
		run.State = domain.StateAwaitingToken
		run.Token = res.Token
		pc.CorrelationTokens[stage] = res.Token
		e.emitStage(ctx, e.hooks.OnDispatch, e.stageEvent(domain.EventDispatch, pc, def, run))

		run.State = domain.StatePolling
		run.NextPollAt = run.StartedAt
		log.DebugContext(ctx, "stage submitted", "token", res.Token)
		return e.check(ctx, pc, def)
	default:
		run.State = domain.StateFailed
		run.LastError = res.Err.Error()
		ev := e.stageEvent(domain.EventDispatch, pc, def, run)
		ev.Err = res.Err
		e.emitStage(ctx, e.hooks.OnDispatch, ev)
		e.degrade(ctx, pc, def, res.Err, domain.StateFailed)
	}
	return nil
}

// check performs one poll for the attempt in flight and commits it when terminal.
func (e *Engine) check(ctx context.Context, pc *domain.PipelineContext, def stages.Definition) error {
	run := pc.Active
	now := e.now()
	res := e.Poll(ctx, def, run, now)

	if res.Queried {
		run.Polls++
		run.NextPollAt = now.Add(def.PollInterval)
		e.emitPoll(ctx, &domain.PollEvent{
			EventBase: domain.EventBase{Timestamp: now, Type: domain.EventPoll, RunID: pc.RunID},
			Stage:     run.Stage,
			Name:      def.Name,
			Token:     run.Token,
			Status:    res.Status,
			Polls:     run.Polls,
			Err:       res.Err,
		})
	}
	if res.Err != nil {
		run.LastError = res.Err.Error()
	}

	switch res.Outcome {
	case PollCompleted:
		e.commit(ctx, pc, def, res.Result, nil, domain.StateCompleted)
	case PollFailed:
		run.State = domain.StateFailed
		e.degrade(ctx, pc, def, res.Err, domain.StateFailed)
	case PollTimedOut:
		run.State = domain.StateTimedOut
		e.degrade(ctx, pc, def, res.Err, domain.StateTimedOut)
	default:
		if res.Err != nil {
			e.runLogger(pc, def).WarnContext(ctx, "result store query failed, will retry", "error", res.Err, "polls", run.Polls)
		}
		e.touch(pc)
	}
	return nil
}

// degrade commits the synthesized placeholder for a failed or timed-out attempt.
func (e *Engine) degrade(ctx context.Context, pc *domain.PipelineContext, def stages.Definition, cause error, origin domain.StageState) {
	stage := pc.Active.Stage
	e.runLogger(pc, def).WarnContext(ctx, "stage degraded to fallback", "state", origin, "error", cause)
	e.commit(ctx, pc, def, e.Synthesize(def, pc, stage), cause, origin)
}

// commit folds the attempt in flight into StageOutputs and moves the pointer on.
func (e *Engine) commit(ctx context.Context, pc *domain.PipelineContext, def stages.Definition, res schema.Result, cause error, origin domain.StageState) {
	run := pc.Active
	stage := run.Stage
	out := &domain.StageOutput{
		Result:      res,
		Fallback:    cause != nil,
		Origin:      origin,
		Fingerprint: run.Fingerprint,
		CompletedAt: e.now().UTC(),
	}
	if cause != nil {
		out.Reason = cause.Error()
	}

	if !out.Fallback {
		run.State = domain.StateCompleted
	}
	ev := e.stageEvent(domain.EventStageComplete, pc, def, run)
	ev.Fallback = out.Fallback
	ev.Err = cause

	pc.StageOutputs[stage] = out
	delete(pc.CorrelationTokens, stage)
	pc.Active = nil
	pc.CurrentStage = stage + 1
	e.touch(pc)

	e.emitStage(ctx, e.hooks.OnStageComplete, ev)
	if out.Fallback {
		fb := *ev
		fb.Type = domain.EventFallback
		e.emitStage(ctx, e.hooks.OnFallback, &fb)
	}
	e.emitNavigate(ctx, pc, domain.NavAdvance, stage)
}

// abandon forgets the attempt in flight, if any. The Result Store is not told.
func (e *Engine) abandon(ctx context.Context, pc *domain.PipelineContext) {
	run := pc.Active
	if run == nil {
		return
	}
	if run.Token != "" {
		e.logger.InfoContext(ctx, "abandoning in-flight stage",
			"run_id", pc.RunID, "stage", run.Name, "token", run.Token, "polls", run.Polls)
	}
	delete(pc.CorrelationTokens, run.Stage)
	pc.Active = nil
}
