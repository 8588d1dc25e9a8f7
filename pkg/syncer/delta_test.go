// pkg/syncer/delta_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test delta block and summary reporting

package syncer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/syncer"
)

func TestDeltaBlock_String(t *testing.T) {
	tests := []struct {
		name  string
		block syncer.DeltaBlock
		want  string
	}{
		{
			name:  "one_line_unchanged",
			block: syncer.DeltaBlock{FirstLine: 4, Templates: []string{"x"}, OldLines: []string{"a"}, NewLines: []string{"a"}},
			want:  "Line 4 unchanged.",
		},
		{
			name:  "one_line_edited",
			block: syncer.DeltaBlock{FirstLine: 4, Templates: []string{"x"}, OldLines: []string{"a"}, NewLines: []string{"b"}},
			want:  "Line 4 edited from 'a' to 'b'.",
		},
		{
			name: "many_lines_unchanged",
			block: syncer.DeltaBlock{
				FirstLine: 10, Templates: []string{"x", "y"},
				OldLines: []string{"a", "b"}, NewLines: []string{"a", "b"},
			},
			want: "Lines 10 to 11 unchanged.",
		},
		{
			name: "many_lines_edited",
			block: syncer.DeltaBlock{
				FirstLine: 10, Templates: []string{"x", "y", "z"},
				OldLines: []string{"a", "b", "c"}, NewLines: []string{"a", "B", "C"},
			},
			want: "Lines 10 to 12 edited (2 lines differ).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.block.String())
		})
	}
}

func TestSummary(t *testing.T) {
	s := &syncer.Summary{
		Path: "README.md",
		Blocks: []*syncer.DeltaBlock{
			{Templates: []string{"x"}, OldLines: []string{"a"}, NewLines: []string{"b"}},
			{Templates: []string{"x", "y"}, OldLines: []string{"a", "b"}, NewLines: []string{"a", "c"}},
		},
	}

	assert.Equal(t, 2, s.BlockCount())
	assert.Equal(t, 3, s.LinesCovered())
	assert.Equal(t, 2, s.LinesChanged())
	assert.Equal(t, "README.md: 2 lines changed (of 3 in 2 blocks)", s.String())

	s.BackupPath = ".tyranno/sync-bak/README.md"
	assert.Equal(t, "README.md: 2 lines changed (of 3 in 2 blocks) (backup saved as .tyranno/sync-bak/README.md)", s.String())
}
