package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ugc/exporter/internal/category"
	"ugc/exporter/internal/client"
	"ugc/exporter/internal/config"
	"ugc/exporter/internal/domain"
	"ugc/exporter/internal/domain/task"
	"ugc/exporter/internal/feed"
	"ugc/exporter/internal/queue"
	"ugc/exporter/internal/repository"
	"ugc/exporter/internal/state"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// feedJobID keys the job's checkpoint state; one product feed runs at
// a time, so resume state is per feed, not per invocation.
const feedJobID = "product-feed"

// maxEventRetries bounds how often a commerce event is requeued before
// it is dropped.
const maxEventRetries = 5

type Service struct {
	repository   repository.CatalogRepository
	client       client.Client
	queue        queue.Queue
	stateManager state.StateManager
	categories   *category.Manager
	assembler    *feed.Assembler
	exportCfg    config.ExportConfig
	groupName    string
	minIdleTime  time.Duration
}

func NewService(
	repository repository.CatalogRepository,
	client client.Client,
	queue queue.Queue,
	stateManager state.StateManager,
	categories *category.Manager,
	assembler *feed.Assembler,
	exportCfg config.ExportConfig,
	groupName string,
	minIdleTime int,
) *Service {
	return &Service{
		repository:   repository,
		client:       client,
		queue:        queue,
		stateManager: stateManager,
		categories:   categories,
		assembler:    assembler,
		exportCfg:    exportCfg,
		groupName:    groupName,
		minIdleTime:  time.Duration(minIdleTime) * time.Second,
	}
}

// RunExport executes one full feed job. Phases run in the fixed order
// the hosting platform dictates: before-step, then read / process /
// write per chunk, then after-step bookkeeping. Strictly sequential;
// the category index is built once and reused across every product of
// the run, then cleared no matter how the job ends.
func (s *Service) RunExport(ctx context.Context) error {
	audit := &domain.ExportAudit{
		JobID:     feedJobID,
		StartedAt: time.Now(),
	}

	defer func() {
		audit.Strategy = s.categories.Stats().Strategy
		s.categories.Clear()
		audit.EndedAt = time.Now()
		if err := s.repository.SaveExportAudit(ctx, audit); err != nil {
			log.Errorf("❌ Failed to save export audit: %v", err)
		}
	}()

	// before-step: pay the index build cost once, up front. A failure
	// here is tolerated; the index falls back to lazy initialization.
	if err := s.categories.PreInitialize(); err != nil {
		log.Warnf("Category index pre-initialization failed, continuing with lazy init: %v", err)
	}

	total, err := s.repository.CountProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}

	startPage, err := s.stateManager.GetLastExportedPage(ctx, feedJobID)
	if err != nil {
		log.Errorf("Failed to read export checkpoint: %v", err)
		startPage = 0
	}
	if startPage != 0 {
		log.Infof("🔄 Resuming feed export from page %d", startPage)
	}

	log.Infof("🔄 Exporting %d products in chunks of %d", total, s.exportCfg.ChunkSize)

	for page := startPage; ; page++ {
		products, err := s.repository.ListProducts(ctx, page*s.exportCfg.ChunkSize, s.exportCfg.ChunkSize)
		if err != nil {
			audit.Aborted = true
			return fmt.Errorf("failed to read product page %d: %w", page, err)
		}
		if len(products) == 0 {
			break
		}

		records, aborted, err := s.processChunk(ctx, products, audit)
		if aborted {
			audit.Aborted = true
			return err
		}

		if err := s.client.SendFeedChunk(ctx, page, records); err != nil {
			retryTask := &task.FeedChunkRetryTask{
				Page:       page,
				RetryCount: 0,
				Error:      err.Error(),
			}
			if _, addErr := s.queue.AddTask(ctx, retryTask); addErr != nil {
				log.Errorf("❌ Failed to queue retry for feed page %d: %v", page, addErr)
			} else {
				log.Warnf("🔄 Feed page %d queued for retry after upload failure: %v", page, err)
			}
		} else {
			audit.Exported += len(records)
		}

		// after-step: checkpoint so an interrupted run resumes here.
		if (page+1)%s.exportCfg.CheckpointInterval == 0 {
			if err := s.stateManager.SetLastExportedPage(ctx, feedJobID, page+1); err != nil {
				log.Errorf("Failed to checkpoint feed progress: %v", err)
			}
		}
	}

	stats := s.categories.Stats()
	log.Infof("✅ Feed export complete: %d exported, %d failed, strategy %s, map sizes %v",
		audit.Exported, audit.Failed, stats.Strategy, stats.MapSizes)

	if err := s.stateManager.ClearProgress(ctx, feedJobID); err != nil {
		log.Errorf("Failed to clear feed progress: %v", err)
	}

	return nil
}

// processChunk assembles the records of one product page. A product
// that fails to assemble is dropped from the chunk and counted; the
// job aborts only after the configured number of consecutive failures.
func (s *Service) processChunk(ctx context.Context, products []domain.Product, audit *domain.ExportAudit) ([]domain.ExportRecord, bool, error) {
	records := make([]domain.ExportRecord, 0, len(products))

	for _, p := range products {
		record, err := s.assembler.Assemble(p)
		if err != nil {
			audit.Failed++
			log.Errorf("❌ Failed to assemble product %s: %v", p.ID, err)

			failures, countErr := s.stateManager.IncrConsecutiveFailures(ctx, feedJobID)
			if countErr != nil {
				log.Errorf("Failed to count product failure: %v", countErr)
				continue
			}
			if failures >= s.exportCfg.MaxConsecutiveFailures {
				return nil, true, fmt.Errorf("aborting feed export after %d consecutive product failures", failures)
			}
			continue
		}

		if err := s.stateManager.ResetConsecutiveFailures(ctx, feedJobID); err != nil {
			log.Errorf("Failed to reset failure count: %v", err)
		}
		records = append(records, *record)
	}

	return records, false, nil
}

// RunWorkers processes queued commerce events and feed-page retries.
func (s *Service) RunWorkers(ctx context.Context, numWorkers int) error {
	var wg sync.WaitGroup

	s.runWorkersForStream(ctx, &wg, numWorkers, queue.StreamPrefix+"CommerceEventTask", "event")
	s.runWorkersForStream(ctx, &wg, max(1, numWorkers/2), queue.StreamPrefix+"FeedChunkRetryTask", "retry")

	wg.Wait()
	return nil
}

func (s *Service) runWorkersForStream(ctx context.Context, wg *sync.WaitGroup, numWorkers int, streamName, workerType string) {
	// Auto-claimer rescues messages stuck with dead consumers.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.minIdleTime)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				consumer := fmt.Sprintf("autoclaimer-%s-%d", workerType, time.Now().UnixNano())
				claimed, err := s.queue.AutoClaim(ctx, s.groupName, consumer, streamName, s.minIdleTime)
				if err != nil {
					log.Errorf("❌ Failed to auto-claim messages for %s: %v", streamName, err)
					continue
				}
				for _, msg := range claimed {
					if err := s.processMessage(ctx, &msg); err != nil {
						log.Errorf("❌ Failed to process auto-claimed message %s: %v", msg.ID, err)
					}
				}
			}
		}
	}()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			consumer := fmt.Sprintf("%s-worker-%d", workerType, workerID)
			log.Infof("🚀 Starting %s worker %d as consumer %s", workerType, workerID, consumer)
			for {
				select {
				case <-ctx.Done():
					log.Infof("🛑 %s worker %d stopping", workerType, workerID)
					return
				default:
					msg, err := s.queue.GetTask(ctx, s.groupName, consumer, streamName)
					if err != nil {
						log.Errorf("❌ Failed to get task from %s: %v", streamName, err)
						continue
					}

					if msg != nil {
						if err := s.processMessage(ctx, msg); err != nil {
							log.Errorf("❌ Failed to process message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}(i + 1)
	}
}

func (s *Service) processMessage(ctx context.Context, msg *redis.XMessage) error {
	taskType, ok := msg.Values["task_type"].(string)
	if !ok {
		return fmt.Errorf("invalid task type in message %s", msg.ID)
	}

	taskData, ok := msg.Values["task_data"].(string)
	if !ok {
		return fmt.Errorf("invalid task data in message %s", msg.ID)
	}

	var streamName string
	switch taskType {
	case "CommerceEventTask":
		streamName = queue.StreamPrefix + "CommerceEventTask"
		eventTask, err := task.UnmarshalTask[*task.CommerceEventTask]([]byte(taskData))
		if err != nil {
			return fmt.Errorf("failed to unmarshal commerce event task: %w", err)
		}

		if err := s.forwardEvent(ctx, eventTask); err != nil {
			return fmt.Errorf("failed to forward commerce event: %w", err)
		}

	case "FeedChunkRetryTask":
		streamName = queue.StreamPrefix + "FeedChunkRetryTask"
		retryTask, err := task.UnmarshalTask[*task.FeedChunkRetryTask]([]byte(taskData))
		if err != nil {
			return fmt.Errorf("failed to unmarshal feed retry task: %w", err)
		}

		if err := s.retryFeedChunk(ctx, retryTask); err != nil {
			return fmt.Errorf("failed to retry feed page: %w", err)
		}

	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}

	if err := s.queue.AckTask(ctx, streamName, s.groupName, msg.ID); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", msg.ID, err)
	}

	return nil
}

func (s *Service) forwardEvent(ctx context.Context, eventTask *task.CommerceEventTask) error {
	if err := s.client.SendEvent(ctx, eventTask.Event); err != nil {
		eventTask.RetryCount++
		eventTask.Error = err.Error()

		if eventTask.RetryCount > maxEventRetries {
			log.Errorf("❌ Dropping %s event for product %s after %d attempts: %v",
				eventTask.Event.Type, eventTask.Event.ProductID, eventTask.RetryCount, err)
			return nil
		}

		if _, addErr := s.queue.AddTask(ctx, eventTask); addErr != nil {
			return fmt.Errorf("failed to requeue event: %w", addErr)
		}
		log.Warnf("🔄 Requeued %s event (attempt %d): %v", eventTask.Event.Type, eventTask.RetryCount, err)
		return nil
	}

	return nil
}

// retryFeedChunk re-reads a failed page from the catalog and uploads
// it again. The page is rebuilt rather than replayed because the
// original records were never persisted.
func (s *Service) retryFeedChunk(ctx context.Context, retryTask *task.FeedChunkRetryTask) error {
	retryTask.RetryCount++

	log.Infof("🔄 Retrying feed page %d (attempt %d)", retryTask.Page, retryTask.RetryCount)

	products, err := s.repository.ListProducts(ctx, retryTask.Page*s.exportCfg.ChunkSize, s.exportCfg.ChunkSize)
	if err != nil {
		return fmt.Errorf("failed to re-read products for page %d: %w", retryTask.Page, err)
	}
	if len(products) == 0 {
		log.Warnf("Feed page %d is empty on retry, dropping", retryTask.Page)
		return nil
	}

	records := make([]domain.ExportRecord, 0, len(products))
	for _, p := range products {
		record, assembleErr := s.assembler.Assemble(p)
		if assembleErr != nil {
			log.Errorf("❌ Failed to assemble product %s on retry: %v", p.ID, assembleErr)
			continue
		}
		records = append(records, *record)
	}

	if err := s.client.SendFeedChunk(ctx, retryTask.Page, records); err != nil {
		newRetry := &task.FeedChunkRetryTask{
			Page:       retryTask.Page,
			RetryCount: retryTask.RetryCount,
			Error:      err.Error(),
		}
		if _, addErr := s.queue.AddTask(ctx, newRetry); addErr != nil {
			log.Errorf("❌ Failed to requeue feed page %d: %v", retryTask.Page, addErr)
			return addErr
		}
		log.Warnf("🔄 Feed page %d failed again, will retry (attempt %d): %v", retryTask.Page, retryTask.RetryCount, err)
		return nil
	}

	log.Infof("✅ Recovered feed page %d after %d attempts", retryTask.Page, retryTask.RetryCount)
	return nil
}
