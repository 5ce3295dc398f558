// Package qdrant is a vector.Repository backed by a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/efebarandurmaz/pramaanx/internal/vector"
)

const (
	payloadID      = "entry_id"
	payloadContent = "content"
)

// Repository implements vector.Repository using Qdrant.
type Repository struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a Qdrant-backed repository. The collection is created lazily
// on the first insert, sized to the first vector.
func New(host string, port int, collection string) (*Repository, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &Repository{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// pointID maps an entry id to a stable UUIDv5, since Qdrant only accepts
// UUIDs or integers as point ids.
func pointID(id string) *pb.PointId {
	u := uuid.NewSHA1(uuid.NameSpaceURL, []byte("pramaanx:"+id))
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: u.String()}}
}

func (r *Repository) exists(ctx context.Context) (bool, error) {
	resp, err := r.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: r.collection})
	if err != nil {
		return false, fmt.Errorf("qdrant collection exists: %w", err)
	}
	return resp.GetResult().GetExists(), nil
}

func (r *Repository) ensureCollection(ctx context.Context, dims int) error {
	ok, err := r.exists(ctx)
	if err != nil || ok {
		return err
	}
	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{
			Size:     uint64(dims),
			Distance: pb.Distance_Euclid,
		}}},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	return nil
}

// Insert upserts all entries in a single waited request. Id collisions are
// detected up front by vector.Index through Existing.
func (r *Repository) Insert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.ensureCollection(ctx, len(entries[0].Vector)); err != nil {
		return err
	}

	points := make([]*pb.PointStruct, len(entries))
	for i, e := range entries {
		points[i] = &pb.PointStruct{
			Id:      pointID(e.ID),
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: e.Vector}}},
			Payload: toPayload(e),
		}
	}

	wait := true
	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (r *Repository) Existing(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ok, err := r.exists(ctx)
	if err != nil || !ok {
		return nil, err
	}

	pids := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		pids[i] = pointID(id)
	}
	resp, err := r.points.Get(ctx, &pb.GetPoints{
		CollectionName: r.collection,
		Ids:            pids,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant get: %w", err)
	}

	out := make([]string, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		out = append(out, pt.GetPayload()[payloadID].GetStringValue())
	}
	return out, nil
}

func (r *Repository) Search(ctx context.Context, vec []float32, k int) ([]vector.Match, error) {
	ok, err := r.exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok || k <= 0 {
		return []vector.Match{}, nil
	}

	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vec,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	results := make([]vector.Match, len(resp.GetResult()))
	for i, pt := range resp.GetResult() {
		results[i] = fromPayload(pt.GetPayload())
		// Euclid collections report the distance itself as the score.
		results[i].Distance = pt.GetScore()
	}
	return results, nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	ok, err := r.exists(ctx)
	if err != nil || !ok {
		return 0, err
	}
	exact := true
	resp, err := r.points.Count(ctx, &pb.CountPoints{CollectionName: r.collection, Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func (r *Repository) Reset(ctx context.Context) error {
	ok, err := r.exists(ctx)
	if err != nil || !ok {
		return err
	}
	if _, err := r.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: r.collection}); err != nil {
		return fmt.Errorf("qdrant delete collection: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.conn.Close()
}

func toPayload(e vector.Entry) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		payloadID:      {Kind: &pb.Value_StringValue{StringValue: e.ID}},
		payloadContent: {Kind: &pb.Value_StringValue{StringValue: e.Content}},
	}
	for k, v := range e.Metadata {
		payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	return payload
}

func fromPayload(payload map[string]*pb.Value) vector.Match {
	m := vector.Match{Metadata: make(map[string]string)}
	for k, v := range payload {
		switch k {
		case payloadID:
			m.ID = v.GetStringValue()
		case payloadContent:
			m.Content = v.GetStringValue()
		default:
			m.Metadata[k] = v.GetStringValue()
		}
	}
	return m
}

var _ vector.Repository = (*Repository)(nil)
