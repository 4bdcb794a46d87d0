package sqlinline

// QRequeueStuckJobs returns jobs whose processing claim outlived the reap
// window to the queue. Idempotent claim handling makes re-delivery safe.
const QRequeueStuckJobs = `--sql 8c1f2b6e-3d41-4f0a-9c75-2e8a4b6d1c03
UPDATE ai_jobs
SET status = 'queued', updated_at = now()
WHERE status = 'processing'
  AND updated_at < now() - make_interval(secs => $1)
RETURNING id;
`

// QCountJobsByStatus feeds the worker's periodic queue-depth log line.
const QCountJobsByStatus = `--sql 5b9e0d24-7a6c-4e18-b3f1-9d4c2a7e6f51
SELECT status, count(*)
FROM ai_jobs
GROUP BY status;
`
