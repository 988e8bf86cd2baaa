package sqlinline

const QSelectMediaItemByID = `--sql 3c2f7d4e-8a61-4b0f-9e52-71d0c6a9b814
select
  id,
  coalesce(title, ''),
  original_url,
  coalesce(thumbnail_url, ''),
  coalesce(thumbnail_webp_url, ''),
  coalesce(large_url, ''),
  coalesce(large_webp_url, ''),
  updated_at
from media_items
where id = $1::bigint
limit 1;
`

const QListMediaItems = `--sql 9a41e0c3-5d27-4f88-b6a1-0e3c2d7f5b96
select
  id,
  coalesce(title, ''),
  original_url,
  coalesce(thumbnail_url, ''),
  coalesce(thumbnail_webp_url, ''),
  coalesce(large_url, ''),
  coalesce(large_webp_url, ''),
  updated_at
from media_items
order by id asc;
`

const QListMediaItemsMissingDerivatives = `--sql e7b5a2d1-0c94-4e6f-8d3b-5f1a9c24e0d7
select
  id,
  coalesce(title, ''),
  original_url,
  coalesce(thumbnail_url, ''),
  coalesce(thumbnail_webp_url, ''),
  coalesce(large_url, ''),
  coalesce(large_webp_url, ''),
  updated_at
from media_items
where coalesce(thumbnail_webp_url, '') = ''
   or coalesce(large_webp_url, '') = ''
order by id asc;
`

const QUpdateMediaDerivatives = `--sql 51d8f6a0-2b3e-4c7d-a9f4-86e1b0d3c5a2
update media_items set
  thumbnail_url = $2::text,
  thumbnail_webp_url = $3::text,
  large_url = $4::text,
  large_webp_url = $5::text,
  updated_at = now()
where id = $1::bigint;
`
