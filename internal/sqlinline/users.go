package sqlinline

const QEnsureUsersTable = `--sql e09dadb2-bfcf-49b6-bdae-e2aa80469e4d
create table if not exists users (
    id                  text primary key,
    email               text not null default '',
    name                text not null default '',
    role                text not null default 'user',
    tier                text not null default 'free',
    is_active           boolean not null default true,
    is_verified         boolean not null default false,
    requests_today      integer not null default 0 check (requests_today >= 0),
    requests_reset_date timestamptz,
    total_requests      bigint not null default 0 check (total_requests >= 0),
    created_at          timestamptz not null default now(),
    updated_at          timestamptz not null default now()
);
`

const QSelectUserByID = `--sql 5bfe85f7-7502-46b1-8193-717dd3844afe
select
    id,
    email,
    name,
    role,
    tier,
    is_active,
    is_verified,
    requests_today,
    requests_reset_date,
    total_requests,
    created_at,
    updated_at
from users
where id = $1::text
limit 1;
`

const QUpsertUser = `--sql 572cbe63-24e4-49bb-8ac7-86d57d691e52
insert into users (id, email, name, role, tier, is_active, is_verified, created_at, updated_at)
values ($1::text, $2::text, $3::text, $4::text, $5::text, $6::boolean, $7::boolean, now(), now())
on conflict (id) do update set
    email = excluded.email,
    name = excluded.name,
    role = excluded.role,
    tier = excluded.tier,
    is_active = excluded.is_active,
    is_verified = excluded.is_verified,
    updated_at = now()
returning id, email, name, role, tier, is_active, is_verified,
          requests_today, requests_reset_date, total_requests, created_at, updated_at;
`

// QConsumeRequest counts one request in a single statement. A row comes back
// only when the request is admitted: the stored day is behind $3, the cap $2
// is negative, or the incremented count stays within $2. Staleness is read from
// the row being updated so a writer that waited on the row lock re-checks it
// against the committed version.
const QConsumeRequest = `--sql 5d28cbb2-ed8f-4e00-a725-fd1fefa59a1e
update users u set
    requests_today = case
        when u.requests_reset_date is null
          or (u.requests_reset_date at time zone 'UTC')::date < ($3::timestamptz at time zone 'UTC')::date
        then 1
        else u.requests_today + 1
    end,
    requests_reset_date = case
        when u.requests_reset_date is null
          or (u.requests_reset_date at time zone 'UTC')::date < ($3::timestamptz at time zone 'UTC')::date
        then $3::timestamptz
        else u.requests_reset_date
    end,
    total_requests = u.total_requests + 1,
    updated_at = $3::timestamptz
where u.id = $1::text
  and (u.requests_reset_date is null
       or (u.requests_reset_date at time zone 'UTC')::date < ($3::timestamptz at time zone 'UTC')::date
       or $2::int < 0
       or u.requests_today + 1 <= $2::int)
returning u.requests_today, u.requests_reset_date, u.total_requests;
`

const QSelectUsageByID = `--sql 2cb4d189-ce3a-4cc5-b52f-3922c289ec9d
select requests_today, requests_reset_date, total_requests
from users
where id = $1::text
limit 1;
`

const QUpdateUserRole = `--sql 2e3d7482-7932-43e4-a762-7ab7d21d85ad
update users
set role = $2::text, updated_at = now()
where id = $1::text
returning id, email, name, role, tier, is_active, is_verified,
          requests_today, requests_reset_date, total_requests, created_at, updated_at;
`

const QUpdateUserTier = `--sql 82b91fb8-52b2-4631-a3bc-d83515947190
update users
set tier = $2::text, updated_at = now()
where id = $1::text
returning id, email, name, role, tier, is_active, is_verified,
          requests_today, requests_reset_date, total_requests, created_at, updated_at;
`

const QMarkUserVerified = `--sql 6527a71a-5054-4eef-ba09-18c06344994d
update users
set is_verified = true, updated_at = now()
where id = $1::text
returning id, email, name, role, tier, is_active, is_verified,
          requests_today, requests_reset_date, total_requests, created_at, updated_at;
`

const QCountAdmins = `--sql 4dae872a-dcca-4df5-bc15-9034070fcfaf
select count(*)
from users
where role = 'admin';
`
