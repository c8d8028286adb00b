// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package output writes the extracted streams as newline-delimited JSON
// messages.
//
// Every line is one message: a SCHEMA message announcing a stream's schema
// before its records, one RECORD message per record, and STATE messages
// carrying the bookmarks to resume from. Writer sends the messages to any
// io.Writer or a local file; ObjectSink buffers them and uploads the result
// to S3-compatible object storage when closed.
//
// Example usage:
//
//	sink, err := output.Open(ctx, "s3://exports/ga/run.ndjson", s3cfg)
//	if err != nil {
//	    return err
//	}
//	defer sink.Close()
//
//	_ = sink.WriteSchema(decl)
//	_ = sink.WriteRecord("sessions_by_day", rec)
//	_ = sink.WriteState(map[string]any{"bookmarks": bookmarks})
package output
