package engine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklr-io/datastacks/internal/ir"
)

func stack(name string, deps ...string) *ir.StackInfo {
	return &ir.StackInfo{Name: name, ID: name, Dependencies: deps}
}

// gluePipeline mirrors the dependencies of the streaming Delta Lake app.
func gluePipeline() []*ir.StackInfo {
	return []*ir.StackInfo{
		stack("GlueStreamingSinkToDeltaLakeKdsStack"),
		stack("GlueStreamingSinkToDeltaLakeS3Path"),
		stack("GlueStreamingSinkToDeltaLakeJobRole", "GlueStreamingSinkToDeltaLakeS3Path"),
		stack("GlueSchemaOnKinesisStream", "GlueStreamingSinkToDeltaLakeKdsStack"),
		stack("DataLakePermissionsStack", "GlueStreamingSinkToDeltaLakeJobRole", "GlueSchemaOnKinesisStream"),
		stack("GlueStreamingSinkToDeltaLake",
			"GlueStreamingSinkToDeltaLakeJobRole",
			"GlueSchemaOnKinesisStream",
			"GlueStreamingSinkToDeltaLakeS3Path",
			"DataLakePermissionsStack"),
	}
}

func TestBuildStackGraph_NoDependencies(t *testing.T) {
	sg, err := BuildStackGraph([]*ir.StackInfo{stack("c"), stack("a"), stack("b")})
	require.NoError(t, err)

	order, err := sg.DeployOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestBuildStackGraph_DeployOrder(t *testing.T) {
	sg, err := BuildStackGraph(gluePipeline())
	require.NoError(t, err)

	order, err := sg.DeployOrder()
	require.NoError(t, err)
	require.Len(t, order, 6)

	for _, s := range gluePipeline() {
		for _, dep := range s.Dependencies {
			assert.Less(t, indexOf(order, dep), indexOf(order, s.Name), "%s before %s", dep, s.Name)
		}
	}
	assert.Equal(t, "GlueStreamingSinkToDeltaLake", order[len(order)-1])

	again, err := sg.DeployOrder()
	require.NoError(t, err)
	assert.Equal(t, order, again, "order must be stable")
}

func TestBuildStackGraph_DestroyOrder(t *testing.T) {
	sg, err := BuildStackGraph([]*ir.StackInfo{
		stack("RedshiftCfnProvisionedVPCStack"),
		stack("RedshiftCfnProvisionedStack", "RedshiftCfnProvisionedVPCStack"),
	})
	require.NoError(t, err)

	order, err := sg.DestroyOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"RedshiftCfnProvisionedStack", "RedshiftCfnProvisionedVPCStack"}, order)
}

func TestBuildStackGraph_CycleDetection(t *testing.T) {
	_, err := BuildStackGraph([]*ir.StackInfo{stack("a", "b"), stack("b", "a")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestBuildStackGraph_UnknownDependency(t *testing.T) {
	_, err := BuildStackGraph([]*ir.StackInfo{stack("a", "missing")})
	assert.EqualError(t, err, "stack a depends on unknown stack missing")
}

func TestBuildStackGraph_DuplicateName(t *testing.T) {
	_, err := BuildStackGraph([]*ir.StackInfo{stack("a"), stack("a")})
	assert.EqualError(t, err, "duplicate stack name a")
}

func TestDependenciesAndDependents(t *testing.T) {
	sg, err := BuildStackGraph(gluePipeline())
	require.NoError(t, err)

	deps, err := sg.Dependencies("DataLakePermissionsStack")
	require.NoError(t, err)
	assert.Equal(t, []string{"GlueSchemaOnKinesisStream", "GlueStreamingSinkToDeltaLakeJobRole"}, deps)

	deps, err = sg.Dependencies("GlueStreamingSinkToDeltaLakeKdsStack")
	require.NoError(t, err)
	assert.Empty(t, deps)

	dependents, err := sg.Dependents("GlueStreamingSinkToDeltaLakeKdsStack")
	require.NoError(t, err)
	assert.Equal(t, []string{"DataLakePermissionsStack", "GlueSchemaOnKinesisStream", "GlueStreamingSinkToDeltaLake"}, dependents)

	_, err = sg.Dependencies("nope")
	assert.Error(t, err)
	_, err = sg.Dependents("nope")
	assert.Error(t, err)
}

func TestWriteDOT(t *testing.T) {
	sg, err := BuildStackGraph([]*ir.StackInfo{stack("vpc"), stack("db", "vpc")})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, sg.WriteDOT(&buf))
	out := buf.String()
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, `"vpc" -> "db"`)
}

func TestWriteText(t *testing.T) {
	stacks := []*ir.StackInfo{stack("vpc"), stack("db", "vpc")}
	stacks[1].App = "rds-proxy-aurora-mysql"
	sg, err := BuildStackGraph(stacks)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, sg.WriteText(&buf, false))
	assert.Equal(t, "vpc\ndb (rds-proxy-aurora-mysql) <- vpc\n", buf.String())

	buf.Reset()
	require.NoError(t, sg.WriteText(&buf, true))
	assert.Equal(t, "db (rds-proxy-aurora-mysql) <- vpc\nvpc\n", buf.String())
}

func indexOf(slice []string, item string) int {
	for i, s := range slice {
		if s == item {
			return i
		}
	}
	return -1
}
