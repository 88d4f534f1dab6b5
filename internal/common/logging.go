package common

//
// logging.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

const (
	LogKeyConnID     = "conn_id"
	LogKeyReqID      = "req_id"
	LogKeyTaskID     = "task_id"
	LogKeySessionID  = "session_id"
	LogKeyRemoteAddr = "remote"
)

const (
	LogKeyRequestHeaders  = "req_headers"
	LogKeyResponseHeaders = "resp_headers"
	LogKeyRequestBody     = "req_body"
	LogKeyResponseBody    = "resp_body"
)
