package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mantravadi/granthalaya/answer"
	"github.com/mantravadi/granthalaya/corpus"
	"github.com/mantravadi/granthalaya/pipeline"
	"github.com/mantravadi/granthalaya/recordstore"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type corpusAnswerer interface {
	Answer(ctx context.Context, query string) (answer.Answer, error)
}

type documentIngester interface {
	Ingest(ctx context.Context, doc corpus.Document, meta corpus.Metadata) (pipeline.Receipt, error)
}

type recordLister interface {
	List(ctx context.Context) ([]recordstore.Record, error)
}

// NewCorpusServer exposes the ingestion and retrieval operations as MCP
// tools for the host UI layer.
func NewCorpusServer(answerer corpusAnswerer, ing documentIngester, records recordLister) *server.MCPServer {
	srv := server.NewMCPServer("granthalaya", "0.1.0", server.WithToolCapabilities(false))

	queryTool := mcp.NewTool("query_corpus",
		mcp.WithDescription("Ask a natural-language question over the ingested corpus and get an answer with source records"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The question to answer"),
		))
	srv.AddTool(queryTool, handleQuery(answerer))

	ingestTextTool := mcp.NewTool("ingest_text",
		mcp.WithDescription("Ingest typed text into the corpus"),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the record")),
		mcp.WithString("text", mcp.Required(), mcp.Description("The text content")),
		mcp.WithString("category", mcp.Description("Category identifier")),
		mcp.WithString("language", mcp.Description("Language of the text")),
		mcp.WithString("release_rights", mcp.Description("Release rights declared by the contributor")),
	)
	srv.AddTool(ingestTextTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := request.RequireString("title")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text, err := request.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		receipt, err := ing.Ingest(ctx,
			corpus.Document{Bytes: []byte(text), Kind: corpus.KindText},
			corpus.Metadata{
				Title:         title,
				Filename:      "text_input.txt",
				CategoryID:    request.GetString("category", ""),
				Language:      request.GetString("language", ""),
				ReleaseRights: request.GetString("release_rights", ""),
			})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(receipt)
	})

	ingestFileTool := mcp.NewTool("ingest_file",
		mcp.WithDescription("Ingest an uploaded document (image or PDF goes through OCR)"),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the record")),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Original file name")),
		mcp.WithString("media_kind", mcp.Required(), mcp.Description("One of: image, pdf, text")),
		mcp.WithString("data", mcp.Required(), mcp.Description("Base64-encoded file content")),
		mcp.WithString("category", mcp.Description("Category identifier")),
		mcp.WithString("language", mcp.Description("Language of the document")),
		mcp.WithString("release_rights", mcp.Description("Release rights declared by the contributor")),
	)
	srv.AddTool(ingestFileTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := request.RequireString("title")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filename, err := request.RequireString("filename")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		kindStr, err := request.RequireString("media_kind")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		kind, err := corpus.ParseMediaKind(kindStr)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		data, err := request.RequireString("data")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		buf, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid base64 payload: %s", err)), nil
		}

		receipt, err := ing.Ingest(ctx,
			corpus.Document{Bytes: buf, Kind: kind},
			corpus.Metadata{
				Title:         title,
				Filename:      filename,
				CategoryID:    request.GetString("category", ""),
				Language:      request.GetString("language", ""),
				ReleaseRights: request.GetString("release_rights", ""),
			})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(receipt)
	})

	listTool := mcp.NewTool("list_records",
		mcp.WithDescription("List the archived records of the corpus, newest first"))
	srv.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		recs, err := records.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(recs)
	})

	return srv
}

func handleQuery(answerer corpusAnswerer) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		ans, err := answerer.Answer(ctx, q)
		if err != nil {
			// A failed synthesis still names the records it retrieved.
			var genErr *answer.GenerationError
			if errors.As(err, &genErr) {
				raw, mErr := json.Marshal(struct {
					Error   string             `json:"error"`
					Sources []corpus.SourceRef `json:"sources"`
				}{Error: err.Error(), Sources: ans.Sources})
				if mErr == nil {
					return mcp.NewToolResultError(string(raw)), nil
				}
			}
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(ans)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}
