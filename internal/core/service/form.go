package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nftforge/text2nft/internal/core/domain"
	"github.com/rs/zerolog"
)

// phaseLabels name each phase in failure messages.
var phaseLabels = map[domain.State]string{
	domain.StateGenerating: "Image generation",
	domain.StateUploading:  "Image upload",
	domain.StateMinting:    "Mint",
}

// FormController drives one form: field edits, and the
// generate -> upload -> mint pipeline behind the submit button.
// Only one pipeline runs at a time.
type FormController struct {
	generator domain.ImageGenerator
	uploader  domain.ImageUploader
	minter    domain.Minter
	lock      domain.SubmissionLock
	logger    zerolog.Logger

	mu           sync.Mutex
	seq          uint64
	submissionID string
	state        domain.State
	status       string
	draft        domain.Draft
	artifact     domain.GeneratedArtifact
	asset        domain.HostedAsset
	receipt      *domain.MintReceipt
	failure      *domain.Failure
	subs         map[chan domain.Snapshot]struct{}

	wg sync.WaitGroup
}

// NewFormController creates an idle controller. lock may be nil when the
// process is the only one signing with its wallet.
func NewFormController(
	generator domain.ImageGenerator,
	uploader domain.ImageUploader,
	minter domain.Minter,
	lock domain.SubmissionLock,
	logger zerolog.Logger,
) *FormController {
	return &FormController{
		generator: generator,
		uploader:  uploader,
		minter:    minter,
		lock:      lock,
		logger:    logger,
		state:     domain.StateIdle,
		subs:      make(map[chan domain.Snapshot]struct{}),
	}
}

// SetName updates the name field. Edits are refused while busy.
func (c *FormController) SetName(name string) error {
	return c.edit(func(d *domain.Draft) { d.Name = name })
}

// SetDescription updates the description field. Edits are refused while busy.
func (c *FormController) SetDescription(description string) error {
	return c.edit(func(d *domain.Draft) { d.Description = description })
}

// SetDraft replaces both fields.
func (c *FormController) SetDraft(draft domain.Draft) error {
	return c.edit(func(d *domain.Draft) { *d = draft })
}

// Patch applies the set fields of p in one edit.
func (c *FormController) Patch(p domain.DraftPatch) error {
	return c.edit(p.Apply)
}

func (c *FormController) edit(apply func(*domain.Draft)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busyLocked() {
		return domain.ErrBusy
	}
	apply(&c.draft)
	c.publishLocked()
	return nil
}

// Submit validates the draft and runs the whole pipeline, returning its error.
func (c *FormController) Submit(ctx context.Context) error {
	job, err := c.claim(ctx, false, nil)
	if err != nil {
		return err
	}
	return c.run(ctx, job)
}

// SubmitAsync validates and claims synchronously, then runs the pipeline
// in the background. Pipeline errors are reported through snapshots.
func (c *FormController) SubmitAsync(ctx context.Context) error {
	return c.SubmitPatchAsync(ctx, nil)
}

// SubmitPatchAsync applies patch and claims the submission under one lock,
// so the pipeline runs on exactly the patched draft. The patch is kept
// when validation rejects the submission.
func (c *FormController) SubmitPatchAsync(ctx context.Context, patch *domain.DraftPatch) error {
	job, err := c.claim(ctx, false, patch)
	if err != nil {
		return err
	}
	c.spawn(ctx, job)
	return nil
}

// Retry resumes a failed submission at the phase that failed, reusing the
// generated image and uploaded URL from the earlier attempt.
func (c *FormController) Retry(ctx context.Context) error {
	job, err := c.claim(ctx, true, nil)
	if err != nil {
		return err
	}
	return c.run(ctx, job)
}

// RetryAsync is Retry in the background.
func (c *FormController) RetryAsync(ctx context.Context) error {
	job, err := c.claim(ctx, true, nil)
	if err != nil {
		return err
	}
	c.spawn(ctx, job)
	return nil
}

// Wait blocks until background pipelines have finished.
func (c *FormController) Wait() {
	c.wg.Wait()
}

func (c *FormController) spawn(ctx context.Context, j *job) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.run(ctx, j)
	}()
}

// job is a claimed pipeline run.
type job struct {
	id       string
	start    domain.State
	draft    domain.Draft
	artifact domain.GeneratedArtifact
	asset    domain.HostedAsset
	release  func()
}

// claim checks the guards and moves the controller into its first phase.
// Apart from an applied patch, nothing changes when a guard rejects the
// submission.
func (c *FormController) claim(ctx context.Context, retry bool, patch *domain.DraftPatch) (*job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busyLocked() {
		return nil, domain.ErrBusy
	}
	if patch != nil {
		patch.Apply(&c.draft)
		c.publishLocked()
	}

	start := domain.StateGenerating
	if retry {
		if c.state != domain.StateFailed || c.failure == nil {
			return nil, domain.ErrNotFailed
		}
		start = c.failure.Phase
	}

	// A resumed mint only needs the hosted URL; upload still needs the name.
	switch start {
	case domain.StateGenerating:
		if !c.draft.Complete() {
			return nil, domain.ErrInvalidDraft
		}
	case domain.StateUploading:
		if strings.TrimSpace(c.draft.Name) == "" {
			return nil, domain.ErrInvalidDraft
		}
	}

	release := func() {}
	if c.lock != nil {
		r, ok, err := c.lock.TryAcquire(ctx)
		if err != nil {
			return nil, domain.E(domain.KindTransport, "submission lock", err)
		}
		if !ok {
			return nil, domain.ErrBusy
		}
		release = r
	}

	id := c.submissionID
	if !retry || id == "" {
		id = uuid.NewString()
	}
	c.submissionID = id
	c.failure = nil

	if start == domain.StateGenerating {
		c.artifact = domain.GeneratedArtifact{}
		c.asset = domain.HostedAsset{}
		c.receipt = nil
	}
	c.enterLocked(start)

	return &job{
		id:       id,
		start:    start,
		draft:    c.draft,
		artifact: c.artifact,
		asset:    c.asset,
		release:  release,
	}, nil
}

// run executes the phases from j.start onwards, strictly in sequence.
func (c *FormController) run(ctx context.Context, j *job) error {
	defer j.release()

	log := c.logger.With().Str("submission_id", j.id).Logger()
	log.Info().Str("name", j.draft.Name).Str("from", string(j.start)).Msg("submission started")

	phase := j.start

	if phase == domain.StateGenerating {
		artifact, err := c.generator.Generate(ctx, j.draft.Description)
		if err != nil {
			return c.fail(log, phase, err)
		}
		j.artifact = artifact
		c.advance(func() { c.artifact = artifact }, domain.StateUploading)
		phase = domain.StateUploading
	}

	if phase == domain.StateUploading {
		asset, err := c.uploader.Upload(ctx, j.artifact.ImageBase64, j.draft.Name)
		if err != nil {
			return c.fail(log, phase, err)
		}
		j.asset = asset
		c.advance(func() { c.asset = asset }, domain.StateMinting)
	}

	receipt, err := c.minter.Mint(ctx, domain.MintRequest{TokenURI: j.asset.URL})
	if err != nil {
		return c.fail(log, domain.StateMinting, err)
	}

	c.mu.Lock()
	c.receipt = receipt
	c.draft = domain.Draft{}
	c.status = ""
	c.state = domain.StateIdle
	c.publishLocked()
	c.mu.Unlock()

	evt := log.Info().Str("url", j.asset.URL).Str("tx_hash", receipt.TxHash)
	if receipt.TokenID != nil {
		evt = evt.Str("token_id", receipt.TokenID.String())
	}
	evt.Msg("submission minted")

	return nil
}

// advance stores a phase result and enters the next phase in one update.
func (c *FormController) advance(store func(), next domain.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	store()
	c.enterLocked(next)
}

func (c *FormController) fail(log zerolog.Logger, phase domain.State, err error) error {
	kind := domain.KindOf(err)
	message := fmt.Sprintf("%s failed: %v", phaseLabels[phase], err)

	c.mu.Lock()
	c.state = domain.StateFailed
	c.status = message
	c.failure = &domain.Failure{Phase: phase, Kind: kind, Message: message}
	c.publishLocked()
	c.mu.Unlock()

	log.Error().Err(err).Str("phase", string(phase)).Str("kind", string(kind)).Msg("submission failed")
	return err
}

func (c *FormController) enterLocked(state domain.State) {
	c.state = state
	switch state {
	case domain.StateGenerating:
		c.status = domain.StatusGenerating
	case domain.StateUploading:
		c.status = domain.StatusUploading
	case domain.StateMinting:
		c.status = domain.StatusMinting
	}
	c.publishLocked()
}

func (c *FormController) busyLocked() bool {
	switch c.state {
	case domain.StateGenerating, domain.StateUploading, domain.StateMinting:
		return true
	}
	return false
}

// Snapshot returns the current render state.
func (c *FormController) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Draft returns the current field values.
func (c *FormController) Draft() domain.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// HostedURL returns the URL of the last uploaded image, if any.
func (c *FormController) HostedURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asset.URL
}

func (c *FormController) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		Seq:            c.seq,
		SubmissionID:   c.submissionID,
		State:          c.state,
		Busy:           c.busyLocked(),
		StatusMessage:  c.status,
		Name:           c.draft.Name,
		Description:    c.draft.Description,
		PreviewDataURI: c.artifact.PreviewDataURI(),
		URL:            c.asset.URL,
	}
	if c.asset.URL != "" {
		snap.LinkLabel = c.asset.LinkLabel()
	}
	if c.receipt != nil {
		snap.TxHash = c.receipt.TxHash
		if c.receipt.TokenID != nil {
			snap.TokenID = c.receipt.TokenID.String()
		}
	}
	if c.failure != nil {
		f := *c.failure
		snap.Error = &f
	}
	return snap
}

// Subscribe returns a channel receiving a snapshot after every change.
// A slow subscriber loses intermediate snapshots, never the latest one.
func (c *FormController) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			c.mu.Unlock()
		})
	}
	return ch, cancel
}

// publishLocked bumps the sequence number and fans the snapshot out
// without blocking.
func (c *FormController) publishLocked() {
	c.seq++
	snap := c.snapshotLocked()
	for ch := range c.subs {
		select {
		case ch <- snap:
		default:
			// Drop the oldest queued snapshot to make room
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
