package sqlinline

const QWorkerSessionsWithProcessingJobs = `--sql d08d855b-09df-4f93-9bf2-b4b3e9e6943a
select distinct session_id
from render_jobs
where status = 'processing' and superseded_by = ''
order by session_id;
`

const QWorkerSucceededJobsWithoutBackup = `--sql 2b0ebaf0-ab29-4f8d-8ee4-784d7b376492
select id, session_id, shot_index, result_uri
from render_jobs
where status = 'succeeded'
  and superseded_by = ''
  and backup_key = ''
  and result_uri <> ''
order by updated_at asc
limit $1::int;
`

const QWorkerMarkBackedUp = `--sql 949a88df-ed8e-4026-916d-fb4ded8d2822
update render_jobs
set backup_key = $2::text,
    updated_at = now()
where id = $1;
`
