package storage

import "testing"

func TestPublicObjectURL(t *testing.T) {
	tests := []struct {
		name, base, bucket, path, want string
	}{
		{
			name:   "direct endpoint",
			base:   "http://localhost:9000/",
			bucket: "community-media",
			path:   "u1/post/1700000000000_car.jpg",
			want:   "http://localhost:9000/community-media/u1/post/1700000000000_car.jpg",
		},
		{
			name:   "escapes segments",
			base:   "https://proj.supabase.co/storage/v1/object/public",
			bucket: "community-media",
			path:   "u1/post/1_my car.jpg",
			want:   "https://proj.supabase.co/storage/v1/object/public/community-media/u1/post/1_my%20car.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicObjectURL(tt.base, tt.bucket, tt.path); got != tt.want {
				t.Fatalf("PublicObjectURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
