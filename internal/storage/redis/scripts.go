package redis

const (
	// createEraScript atomically stores an era and its user index entry
	createEraScript = `
local era_key = KEYS[1]    -- worktime:era:{id}
local user_index = KEYS[2] -- worktime:eras:{user}

local id = ARGV[1]
local user_id = ARGV[2]
local description = ARGV[3]
local created_at = ARGV[4]

redis.call('HSET', era_key,
  'id', id,
  'user_id', user_id,
  'description', description,
  'created_at', created_at
)
redis.call('ZADD', user_index, created_at, id)

return 'OK'
`

	// createPeriodScript atomically stores a period, its start-time index
	// entry, and (for an open period) the era's open-period pointer
	createPeriodScript = `
local period_key = KEYS[1]  -- worktime:period:{id}
local era_index = KEYS[2]   -- worktime:periods:{era}
local open_ptr = KEYS[3]    -- worktime:period:open:{era}

local id = ARGV[1]
local era_id = ARGV[2]
local mode = ARGV[3]
local start = ARGV[4]
local finish = ARGV[5]
local prev_id = ARGV[6]

redis.call('HSET', period_key,
  'id', id,
  'era_id', era_id,
  'mode', mode,
  'start', start,
  'end', finish,
  'prev_id', prev_id
)
redis.call('ZADD', era_index, start, id)

if finish == '0' then
  redis.call('SET', open_ptr, id)
end

return 'OK'
`

	// closePeriodScript atomically sets a period's end timestamp and
	// clears the era's open-period pointer if it targets the period
	closePeriodScript = `
local period_key = KEYS[1] -- worktime:period:{id}
local open_ptr = KEYS[2]   -- worktime:period:open:{era}

local id = ARGV[1]
local finish = ARGV[2]

if redis.call('EXISTS', period_key) == 0 then
  return redis.error_reply('period not found')
end

redis.call('HSET', period_key, 'end', finish)

if redis.call('GET', open_ptr) == id then
  redis.call('DEL', open_ptr)
end

return 'OK'
`

	// createAdjustmentScript atomically stores an adjustment and its
	// timestamp index entry
	createAdjustmentScript = `
local adj_key = KEYS[1]   -- worktime:adjustment:{id}
local era_index = KEYS[2] -- worktime:adjustments:{era}

local id = ARGV[1]
local era_id = ARGV[2]
local mode = ARGV[3]
local delta = ARGV[4]
local timestamp = ARGV[5]

redis.call('HSET', adj_key,
  'id', id,
  'era_id', era_id,
  'mode', mode,
  'delta', delta,
  'timestamp', timestamp
)
redis.call('ZADD', era_index, timestamp, id)

return 'OK'
`
)
