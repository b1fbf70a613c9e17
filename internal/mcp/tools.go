package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/knowd/internal/knowledge"
)

// memoOutput is the wire form of a knowledge entry.
type memoOutput struct {
	ID        string            `json:"id" jsonschema:"Entry ID (UUID)"`
	Content   string            `json:"content" jsonschema:"Entry text"`
	Project   string            `json:"project" jsonschema:"Owning project"`
	Tags      []string          `json:"tags" jsonschema:"Entry tags"`
	Source    string            `json:"source" jsonschema:"How the entry was created (manual, import, api)"`
	CreatedAt string            `json:"created_at" jsonschema:"Creation timestamp, RFC 3339"`
	Metadata  map[string]string `json:"metadata,omitempty" jsonschema:"Extension metadata"`
}

func toMemoOutput(e knowledge.Entry) memoOutput {
	out := memoOutput{
		ID:        e.ID,
		Content:   e.Content,
		Project:   e.Project,
		Tags:      e.Tags,
		Source:    string(e.Source),
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
	if len(e.Metadata) > 0 {
		out.Metadata = e.Metadata
	}
	return out
}

// projectOutput is the wire form of project statistics.
type projectOutput struct {
	Name         string `json:"name" jsonschema:"Project name"`
	TotalEntries int    `json:"total_entries" jsonschema:"Number of entries"`
	CreatedAt    string `json:"created_at" jsonschema:"Project creation timestamp, RFC 3339"`
	LastUpdated  string `json:"last_updated,omitempty" jsonschema:"Newest entry timestamp, empty for an empty project"`
}

func toProjectOutput(info knowledge.ProjectInfo) projectOutput {
	out := projectOutput{
		Name:         info.Name,
		TotalEntries: info.TotalEntries,
		CreatedAt:    info.CreatedAt.Format(time.RFC3339),
	}
	if info.LastUpdated != nil {
		out.LastUpdated = info.LastUpdated.Format(time.RFC3339)
	}
	return out
}

type memoAddInput struct {
	Project string   `json:"project,omitempty" jsonschema:"Project to add to. Optional when the server is bound to a project."`
	Content string   `json:"content" jsonschema:"required,Text to remember"`
	Tags    []string `json:"tags,omitempty" jsonschema:"Tags for categorization"`
}

type memoAddOutput struct {
	ID      string `json:"id" jsonschema:"ID of the new entry"`
	Project string `json:"project" jsonschema:"Project the entry was added to"`
}

type memoSearchInput struct {
	Project    string `json:"project,omitempty" jsonschema:"Project to search. Optional when the server is bound to a project."`
	Query      string `json:"query" jsonschema:"required,Natural-language search query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum results to return (default from configuration)"`
}

type memoSearchHit struct {
	memoOutput
	Score float64 `json:"score" jsonschema:"Similarity score, higher is closer"`
	Rank  int     `json:"rank" jsonschema:"1-based rank among results"`
}

type memoSearchOutput struct {
	Results []memoSearchHit `json:"results" jsonschema:"Matching entries ordered by rank"`
	Count   int             `json:"count" jsonschema:"Number of results"`
}

type memoListInput struct {
	Project string `json:"project,omitempty" jsonschema:"Project to list. Optional when the server is bound to a project."`
}

type memoListOutput struct {
	Memos []memoOutput `json:"memos" jsonschema:"All entries, newest first"`
	Count int          `json:"count" jsonschema:"Number of entries"`
}

type memoGetInput struct {
	Project string `json:"project,omitempty" jsonschema:"Project to look in. Optional when the server is bound to a project."`
	ID      string `json:"id" jsonschema:"required,Entry ID, or a unique prefix of one"`
}

type memoGetOutput struct {
	Found bool        `json:"found" jsonschema:"Whether an entry matched"`
	Memo  *memoOutput `json:"memo,omitempty" jsonschema:"The matched entry"`
}

type memoDeleteInput struct {
	Project string `json:"project,omitempty" jsonschema:"Project to delete from. Optional when the server is bound to a project."`
	ID      string `json:"id" jsonschema:"required,Entry ID, or a unique prefix of one"`
}

type memoDeleteOutput struct {
	Deleted bool   `json:"deleted" jsonschema:"Whether an entry was deleted"`
	ID      string `json:"id,omitempty" jsonschema:"Full ID of the deleted entry"`
}

type projectInitInput struct {
	Project string `json:"project,omitempty" jsonschema:"Project to create. Optional when the server is bound to a project."`
}

type projectInitOutput struct {
	Project string `json:"project" jsonschema:"Project name"`
	Created bool   `json:"created" jsonschema:"True when newly created, false when it already existed"`
}

type projectInfoInput struct {
	Project string `json:"project,omitempty" jsonschema:"Project to inspect. Optional when the server is bound to a project."`
}

type projectsListInput struct{}

type projectsListOutput struct {
	Projects []projectOutput `json:"projects" jsonschema:"All projects, newest first"`
	Count    int             `json:"count" jsonschema:"Number of projects"`
}

// handleMemoDelete resolves the ID (prefixes included) and deletes the
// entry. The entry can disappear between the lookup and the delete when
// another process shares the store; the reported text follows the actual
// outcome.
func (s *Server) handleMemoDelete(ctx context.Context, req *mcp.CallToolRequest, args memoDeleteInput) (*mcp.CallToolResult, memoDeleteOutput, error) {
	project, err := s.resolveProject(args.Project)
	if err != nil {
		return nil, memoDeleteOutput{}, err
	}

	// Resolve prefixes to the full ID first; deletion itself is
	// exact-match only.
	entry, err := s.svc.GetKnowledgeByID(ctx, project, args.ID)
	if err != nil {
		return nil, memoDeleteOutput{}, err
	}
	if entry == nil {
		return textResult("No entry matching %q in project %q", args.ID, project),
			memoDeleteOutput{Deleted: false}, nil
	}

	deleted, err := s.svc.DeleteKnowledge(ctx, project, entry.ID)
	if err != nil {
		return nil, memoDeleteOutput{}, err
	}
	if !deleted {
		return textResult("Entry %s was already gone from project %q", entry.ID, project),
			memoDeleteOutput{Deleted: false, ID: entry.ID}, nil
	}

	return textResult("Deleted entry %s from project %q", entry.ID, project),
		memoDeleteOutput{Deleted: true, ID: entry.ID}, nil
}

func textResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memo_add",
		Description: "Save a piece of knowledge to a project. Returns the ID of the new entry.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args memoAddInput) (*mcp.CallToolResult, memoAddOutput, error) {
		project, err := s.resolveProject(args.Project)
		if err != nil {
			return nil, memoAddOutput{}, err
		}

		id, err := s.svc.AddKnowledge(ctx, project, args.Content, args.Tags)
		if err != nil {
			return nil, memoAddOutput{}, err
		}

		return textResult("Added entry %s to project %q", id, project),
			memoAddOutput{ID: id, Project: project}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memo_search",
		Description: "Search a project's knowledge by semantic similarity. Results are ordered by relevance and filtered by the configured similarity threshold.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args memoSearchInput) (*mcp.CallToolResult, memoSearchOutput, error) {
		project, err := s.resolveProject(args.Project)
		if err != nil {
			return nil, memoSearchOutput{}, err
		}

		results, err := s.svc.SearchKnowledge(ctx, project, args.Query, args.MaxResults)
		if err != nil {
			return nil, memoSearchOutput{}, err
		}

		hits := make([]memoSearchHit, len(results))
		for i, r := range results {
			hits[i] = memoSearchHit{
				memoOutput: toMemoOutput(r.Entry),
				Score:      r.Score,
				Rank:       r.Rank,
			}
		}

		return textResult("Found %d result(s) in project %q", len(hits), project),
			memoSearchOutput{Results: hits, Count: len(hits)}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memo_list",
		Description: "List all knowledge entries in a project, newest first.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args memoListInput) (*mcp.CallToolResult, memoListOutput, error) {
		project, err := s.resolveProject(args.Project)
		if err != nil {
			return nil, memoListOutput{}, err
		}

		entries, err := s.svc.ListKnowledge(ctx, project)
		if err != nil {
			return nil, memoListOutput{}, err
		}

		memos := make([]memoOutput, len(entries))
		for i, e := range entries {
			memos[i] = toMemoOutput(e)
		}

		return textResult("Project %q has %d entry(ies)", project, len(memos)),
			memoListOutput{Memos: memos, Count: len(memos)}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memo_get",
		Description: "Fetch one knowledge entry by its ID or a unique ID prefix.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args memoGetInput) (*mcp.CallToolResult, memoGetOutput, error) {
		project, err := s.resolveProject(args.Project)
		if err != nil {
			return nil, memoGetOutput{}, err
		}

		entry, err := s.svc.GetKnowledgeByID(ctx, project, args.ID)
		if err != nil {
			return nil, memoGetOutput{}, err
		}
		if entry == nil {
			return textResult("No entry matching %q in project %q", args.ID, project),
				memoGetOutput{Found: false}, nil
		}

		out := toMemoOutput(*entry)
		return textResult("Found entry %s", entry.ID),
			memoGetOutput{Found: true, Memo: &out}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memo_delete",
		Description: "Delete one knowledge entry by its ID or a unique ID prefix.",
	}, s.handleMemoDelete)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project_init",
		Description: "Create a project if it does not exist. Safe to call repeatedly.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args projectInitInput) (*mcp.CallToolResult, projectInitOutput, error) {
		project, err := s.resolveProject(args.Project)
		if err != nil {
			return nil, projectInitOutput{}, err
		}

		created, err := s.svc.CreateProject(ctx, project)
		if err != nil {
			return nil, projectInitOutput{}, err
		}

		verb := "already exists"
		if created {
			verb = "created"
		}
		return textResult("Project %q %s", project, verb),
			projectInitOutput{Project: project, Created: created}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project_info",
		Description: "Show statistics for a project: entry count, creation time, last update.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args projectInfoInput) (*mcp.CallToolResult, projectOutput, error) {
		project, err := s.resolveProject(args.Project)
		if err != nil {
			return nil, projectOutput{}, err
		}

		info, err := s.svc.GetProjectInfo(ctx, project)
		if err != nil {
			return nil, projectOutput{}, err
		}

		return textResult("Project %q: %d entry(ies)", info.Name, info.TotalEntries),
			toProjectOutput(*info), nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "projects_list",
		Description: "List all projects in the knowledge store, newest first.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args projectsListInput) (*mcp.CallToolResult, projectsListOutput, error) {
		infos, err := s.svc.ListProjects(ctx)
		if err != nil {
			return nil, projectsListOutput{}, err
		}

		projects := make([]projectOutput, len(infos))
		for i, info := range infos {
			projects[i] = toProjectOutput(info)
		}

		return textResult("Found %d project(s)", len(projects)),
			projectsListOutput{Projects: projects, Count: len(projects)}, nil
	})
}
